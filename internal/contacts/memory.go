package contacts

import (
	"context"
	"fmt"
	"sync"

	"inflow/pkg/models"
)

// MemoryRecordStore is an in-memory RecordStore for unit tests and the noop
// deployment profile.
type MemoryRecordStore struct {
	mu             sync.Mutex
	correspondents []Correspondent
	messages       map[string]models.NormalizedMessage
	interactions   map[string][]Interaction
	nextID         int

	// FailPersist forces PersistMessage to fail, for exercising the
	// pipeline's no-advance-on-failure behavior.
	FailPersist error
}

func NewMemoryRecordStore(correspondents ...Correspondent) *MemoryRecordStore {
	return &MemoryRecordStore{
		correspondents: correspondents,
		messages:       make(map[string]models.NormalizedMessage),
		interactions:   make(map[string][]Interaction),
	}
}

func (m *MemoryRecordStore) FindCorrespondentByIdentifier(_ context.Context, channel models.Channel, identifier string) (*Correspondent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.correspondents {
		c := &m.correspondents[i]
		ids := c.Phones
		if channel == models.ChannelEmail {
			ids = c.Emails
		}
		for _, id := range ids {
			if id == identifier {
				out := *c
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (m *MemoryRecordStore) PersistMessage(_ context.Context, correspondentID string, msg models.NormalizedMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPersist != nil {
		return "", m.FailPersist
	}
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.messages[id] = msg
	_ = correspondentID
	return id, nil
}

func (m *MemoryRecordStore) AppendInteraction(_ context.Context, correspondentID string, interaction Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[correspondentID] = append(m.interactions[correspondentID], interaction)
	return nil
}

func (m *MemoryRecordStore) Ping(context.Context) error { return nil }

// Messages returns a copy of all persisted messages.
func (m *MemoryRecordStore) Messages() map[string]models.NormalizedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.NormalizedMessage, len(m.messages))
	for k, v := range m.messages {
		out[k] = v
	}
	return out
}

// Interactions returns the timeline entries appended for a correspondent.
func (m *MemoryRecordStore) Interactions(correspondentID string) []Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Interaction(nil), m.interactions[correspondentID]...)
}
