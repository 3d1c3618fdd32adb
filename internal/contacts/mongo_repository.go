package contacts

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"inflow/pkg/metrics"
	"inflow/pkg/models"
)

const (
	correspondentsCollection = "correspondents"
	messagesCollection       = "messages"
)

// MongoRecordStore is the bundled RecordStore adapter.
type MongoRecordStore struct {
	correspondents *mongo.Collection
	messages       *mongo.Collection
	client         *mongo.Client
}

func NewMongoRecordStore(client *mongo.Client, database string) *MongoRecordStore {
	db := client.Database(database)
	return &MongoRecordStore{
		correspondents: db.Collection(correspondentsCollection),
		messages:       db.Collection(messagesCollection),
		client:         client,
	}
}

func (s *MongoRecordStore) FindCorrespondentByIdentifier(ctx context.Context, channel models.Channel, identifier string) (*Correspondent, error) {
	start := time.Now()

	field := "phones"
	if channel == models.ChannelEmail {
		field = "emails"
	}

	var correspondent Correspondent
	err := s.correspondents.FindOne(ctx, bson.M{field: identifier}).Decode(&correspondent)
	s.observe("find_correspondent", start, err)

	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &correspondent, nil
}

func (s *MongoRecordStore) PersistMessage(ctx context.Context, correspondentID string, msg models.NormalizedMessage) (string, error) {
	start := time.Now()

	doc := bson.M{
		"correspondent_id": correspondentID,
		"channel":          msg.Channel,
		"account_id":       msg.AccountID,
		"sender":           msg.Sender,
		"subject":          msg.Subject,
		"body":             msg.Body,
		"timestamp":        msg.Timestamp,
		"provider_id":      msg.ProviderID,
		"ingested_at":      time.Now().UTC(),
	}

	res, err := s.messages.InsertOne(ctx, doc)
	s.observe("persist_message", start, err)
	if err != nil {
		return "", err
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

func (s *MongoRecordStore) AppendInteraction(ctx context.Context, correspondentID string, interaction Interaction) error {
	start := time.Now()

	_, err := s.correspondents.UpdateOne(ctx,
		bson.M{"_id": correspondentID},
		bson.M{"$push": bson.M{"interactions": interaction}},
	)
	s.observe("append_interaction", start, err)
	return err
}

func (s *MongoRecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoRecordStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && err != mongo.ErrNoDocuments {
		status = "error"
	}
	metrics.IncRecordStoreRequest(operation, status)
	metrics.ObserveRecordStoreDuration(operation, time.Since(start))
}
