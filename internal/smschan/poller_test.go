package smschan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inflow/internal/config"
	"inflow/internal/contacts"
	"inflow/internal/dedup"
	"inflow/internal/ingest"
	"inflow/internal/logger"
	"inflow/internal/normalize"
	"inflow/pkg/models"
)

type nopProducer struct{}

func (nopProducer) Publish(context.Context, string, models.InboundEvent) error { return nil }
func (nopProducer) Close() error                                               { return nil }

func testPipeline(t *testing.T, records *contacts.MemoryRecordStore) *ingest.Pipeline {
	t.Helper()

	store := dedup.NewStore(dedup.NewMemoryRepository(), dedup.Config{
		Retention:         time.Hour,
		HistorySize:       50,
		BodyPrefixLen:     64,
		TimestampRounding: time.Minute,
	}, logger.NopLogger())
	t.Cleanup(store.StopKeyMetricsUpdater)

	return ingest.NewPipeline(
		ingest.NewClassifier(7),
		contacts.NewResolver(records, "1"),
		records,
		normalize.New(),
		dedup.NewHasher(64, time.Minute),
		store,
		dedup.NewCursorStore(dedup.NewMemoryCursorRepository(), time.Hour, logger.NopLogger()),
		nopProducer{},
		"inbound_messages",
		logger.NopLogger(),
	)
}

// smsServer serves a mutable message list and records request details.
type smsServer struct {
	mu       sync.Mutex
	messages []smsMessage
	requests int
	authSeen string
	query    url.Values
	status   int
}

func (s *smsServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.authSeen = r.Header.Get("Authorization")
		s.query = r.URL.Query()
		status := s.status
		msgs := append([]smsMessage(nil), s.messages...)
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(listResponse{Messages: msgs})
	}
}

func newPollerFixture(t *testing.T, server *smsServer, records *contacts.MemoryRecordStore) *Poller {
	t.Helper()

	ts := httptest.NewServer(server.handler())
	t.Cleanup(ts.Close)

	cfg := config.SMSConfig{
		Enabled:           true,
		AccountID:         "acct-sms",
		BaseURL:           ts.URL,
		APIKey:            "test-key",
		PollInterval:      time.Hour,
		PageSize:          50,
		RequestsPerSecond: 100,
	}
	client := NewClient(cfg.BaseURL, cfg.APIKey, cfg.PageSize, cfg.RequestsPerSecond)
	return NewPoller(cfg, client, testPipeline(t, records), logger.NopLogger())
}

func knownCorrespondent() contacts.Correspondent {
	return contacts.Correspondent{ID: "corr-1", Phones: []string{"15550001111"}}
}

func TestPollCycleIngestsInbound(t *testing.T) {
	server := &smsServer{messages: []smsMessage{
		{ID: "SM1", From: "+15550001111", To: "+15559990000", Body: "Running late", Timestamp: "2026-04-02T09:15:00Z"},
		// Outbound: alphanumeric brand sender, must be skipped.
		{ID: "SM2", From: "CLINIC", To: "+15550001111", Body: "Reminder: appointment tomorrow"},
	}}
	records := contacts.NewMemoryRecordStore(knownCorrespondent())
	poller := newPollerFixture(t, server, records)

	poller.cycle(context.Background())

	msgs := records.Messages()
	require.Len(t, msgs, 1)
	for _, m := range msgs {
		assert.Equal(t, "Running late", m.Body)
		assert.Equal(t, "15550001111", m.Sender)
		assert.Equal(t, time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC), m.Timestamp.UTC())
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "Bearer test-key", server.authSeen)
}

func TestListRequestFiltersInboundServerSide(t *testing.T) {
	server := &smsServer{}
	records := contacts.NewMemoryRecordStore(knownCorrespondent())
	poller := newPollerFixture(t, server, records)

	poller.cycle(context.Background())

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "inbound", server.query.Get("type"))
	assert.Equal(t, "50", server.query.Get("limit"))
	assert.Equal(t, "desc", server.query.Get("sort"))
}

func TestPollCycleExplicitDirectionWins(t *testing.T) {
	server := &smsServer{messages: []smsMessage{
		// Numeric sender but explicitly outbound.
		{ID: "SM1", From: "+15550001111", Body: "See you then", Type: "outbound"},
	}}
	records := contacts.NewMemoryRecordStore(knownCorrespondent())
	poller := newPollerFixture(t, server, records)

	poller.cycle(context.Background())

	assert.Empty(t, records.Messages())
}

func TestPollCycleIdempotentAcrossCycles(t *testing.T) {
	server := &smsServer{messages: []smsMessage{
		{ID: "SM1", From: "+15550001111", Body: "Hello", Timestamp: "2026-04-02T09:15:00Z"},
	}}
	records := contacts.NewMemoryRecordStore(knownCorrespondent())
	poller := newPollerFixture(t, server, records)
	ctx := context.Background()

	poller.cycle(ctx)
	poller.cycle(ctx)
	poller.cycle(ctx)

	assert.Len(t, records.Messages(), 1)
	assert.Len(t, records.Interactions("corr-1"), 1)
}

func TestPollCycleFailureIsolated(t *testing.T) {
	server := &smsServer{status: http.StatusInternalServerError}
	records := contacts.NewMemoryRecordStore(knownCorrespondent())
	poller := newPollerFixture(t, server, records)
	ctx := context.Background()

	// A failed cycle must not panic or poison subsequent cycles.
	poller.cycle(ctx)

	server.mu.Lock()
	server.status = 0
	server.messages = []smsMessage{{ID: "SM1", From: "+15550001111", Body: "Hello"}}
	server.mu.Unlock()

	poller.cycle(ctx)
	assert.Len(t, records.Messages(), 1)
}

func TestPollCycleMessageWithoutProviderID(t *testing.T) {
	server := &smsServer{messages: []smsMessage{
		{From: "+15550001111", Body: "No ID on this one", Timestamp: "2026-04-02T09:15:00Z"},
	}}
	records := contacts.NewMemoryRecordStore(knownCorrespondent())
	poller := newPollerFixture(t, server, records)
	ctx := context.Background()

	poller.cycle(ctx)
	// Redelivery without an ID still dedups via content hash.
	poller.cycle(ctx)

	assert.Len(t, records.Messages(), 1)
}

func TestParseTimestampFormats(t *testing.T) {
	assert.Equal(t, time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC),
		parseTimestamp("2026-04-02T09:15:00Z").UTC())
	assert.False(t, parseTimestamp("2026-04-02 09:15:00").IsZero())
	assert.True(t, parseTimestamp("").IsZero())
	assert.True(t, parseTimestamp("not-a-time").IsZero())
}
