package contacts

import (
	"context"
	"time"

	"inflow/pkg/models"
)

// Correspondent is the record-store view of a known contact. The ingestion
// core never creates correspondents; it only looks them up.
type Correspondent struct {
	ID          string   `bson:"_id"`
	DisplayName string   `bson:"display_name"`
	Emails      []string `bson:"emails"`
	Phones      []string `bson:"phones"`
}

// Interaction is the timeline entry appended to a correspondent when a
// message is ingested for them.
type Interaction struct {
	Channel   models.Channel `bson:"channel"`
	MessageID string         `bson:"message_id"`
	Summary   string         `bson:"summary"`
	Timestamp time.Time      `bson:"timestamp"`
}

// RecordStore abstracts the external system of record. The bundled
// implementation is mongo-backed; deployments can swap in their own.
type RecordStore interface {
	// FindCorrespondentByIdentifier looks up a correspondent by an
	// already-canonical identifier. A miss returns (nil, nil).
	FindCorrespondentByIdentifier(ctx context.Context, channel models.Channel, identifier string) (*Correspondent, error)

	// PersistMessage stores the normalized message and returns its
	// record-store ID.
	PersistMessage(ctx context.Context, correspondentID string, msg models.NormalizedMessage) (string, error)

	// AppendInteraction appends a timeline entry to the correspondent.
	AppendInteraction(ctx context.Context, correspondentID string, interaction Interaction) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
