package imapchan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inflow/internal/config"
	"inflow/internal/contacts"
	"inflow/internal/dedup"
	"inflow/internal/ingest"
	"inflow/internal/logger"
	"inflow/internal/normalize"
	apperrors "inflow/pkg/errors"
	"inflow/pkg/models"
)

type nopProducer struct{}

func (nopProducer) Publish(context.Context, string, models.InboundEvent) error { return nil }
func (nopProducer) Close() error                                               { return nil }

func testPipeline(t *testing.T, records *contacts.MemoryRecordStore) *ingest.Pipeline {
	t.Helper()

	dedupCfg := dedup.Config{
		Retention:         time.Hour,
		HistorySize:       50,
		BodyPrefixLen:     64,
		TimestampRounding: time.Minute,
	}
	store := dedup.NewStore(dedup.NewMemoryRepository(), dedupCfg, logger.NopLogger())
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

func testIMAPConfig() config.IMAPConfig {
	return config.IMAPConfig{
		CatchUpWindow:        20,
		HeartbeatInterval:    time.Hour,
		BackupScanInterval:   time.Hour,
		IdleTimeout:          time.Hour,
		MaxReconnectAttempts: 3,
		ReconnectInitial:     time.Millisecond,
		ReconnectMax:         5 * time.Millisecond,
		AuthRetryDelay:       2 * time.Millisecond,
		RateLimitRetryDelay:  2 * time.Millisecond,
	}
}

func testAccount() config.IMAPAccountConfig {
	return config.IMAPAccountConfig{
		ID:       "acct-mail",
		Host:     "imap.example.com",
		Port:     993,
		Username: "inbox@clinic.example",
		Password: "secret",
		Mailbox:  "INBOX",
	}
}

// failingDialer always fails with the given error.
type failingDialer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (d *failingDialer) Dial(context.Context, config.IMAPAccountConfig) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil, d.err
}

func (d *failingDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakeConn serves one canned message and then idles until stopped.
type fakeConn struct {
	mu        sync.Mutex
	msg       *imap.Message
	updates   chan client.Update
	noops     int
	loggedOut bool
}

func newFakeConn(msg *imap.Message) *fakeConn {
	return &fakeConn{msg: msg, updates: make(chan client.Update, 4)}
}

func (c *fakeConn) Select(string) (*imap.MailboxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := uint32(0)
	if c.msg != nil {
		count = 1
	}
	return &imap.MailboxStatus{Messages: count, UidValidity: 99}, nil
}

func (c *fakeConn) Fetch(_ *imap.SeqSet, _ []imap.FetchItem, ch chan *imap.Message) error {
	c.mu.Lock()
	msg := c.msg
	c.mu.Unlock()
	if msg != nil {
		ch <- msg
	}
	close(ch)
	return nil
}

func (c *fakeConn) Idle(stop <-chan struct{}, _ time.Duration) error {
	<-stop
	return nil
}

func (c *fakeConn) Updates() <-chan client.Update { return c.updates }

func (c *fakeConn) Noop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noops++
	return nil
}

func (c *fakeConn) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
	return nil
}

type fakeDialer struct {
	conn *fakeConn
}

func (d *fakeDialer) Dial(context.Context, config.IMAPAccountConfig) (Conn, error) {
	return d.conn, nil
}

func fakeMailMessage() *imap.Message {
	return &imap.Message{
		Uid:          7,
		InternalDate: time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC),
		Envelope: &imap.Envelope{
			Subject: "Booking",
			From:    []*imap.Address{{MailboxName: "jane", HostName: "example.com"}},
			To:      []*imap.Address{{MailboxName: "inbox", HostName: "clinic.example"}},
		},
	}
}

func TestSupervisorDisabledAfterExhaustedReconnects(t *testing.T) {
	dialer := &failingDialer{err: apperrors.ErrConnection.WithDetail("reason", "refused")}
	sup := NewSupervisor(testAccount(), testIMAPConfig(), dialer, testPipeline(t, contacts.NewMemoryRecordStore()), logger.NopLogger())

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after exhausting reconnect attempts")
	}

	assert.Equal(t, StateDisabled, sup.State())
	assert.Equal(t, 3, dialer.callCount())
	assert.NotEmpty(t, sup.LastError())

	_, disabled, _ := sup.HealthState()
	assert.True(t, disabled)
}

func TestSupervisorAuthFailureUsesFixedDelay(t *testing.T) {
	cfg := testIMAPConfig()
	cfg.MaxReconnectAttempts = 2
	dialer := &failingDialer{err: apperrors.ErrAuthFailed.WithDetail("reason", "bad password")}
	sup := NewSupervisor(testAccount(), cfg, dialer, testPipeline(t, contacts.NewMemoryRecordStore()), logger.NopLogger())

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not fail-stop")
	}

	assert.Equal(t, StateDisabled, sup.State())
	assert.Equal(t, 2, dialer.callCount())
}

func TestSupervisorCatchUpScanIngests(t *testing.T) {
	records := contacts.NewMemoryRecordStore(contacts.Correspondent{
		ID:     "corr-1",
		Emails: []string{"jane@example.com"},
	})
	conn := newFakeConn(fakeMailMessage())
	sup := NewSupervisor(testAccount(), testIMAPConfig(), &fakeDialer{conn: conn}, testPipeline(t, records), logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// The post-connect scan runs before the first idle round.
	require.Eventually(t, func() bool {
		return len(records.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	for _, m := range records.Messages() {
		assert.Equal(t, models.ChannelEmail, m.Channel)
		assert.Equal(t, "jane@example.com", m.Sender)
		assert.Equal(t, "99:7", m.ProviderID)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.loggedOut)
}

func TestSupervisorIdleWakeTriggersScan(t *testing.T) {
	records := contacts.NewMemoryRecordStore(contacts.Correspondent{
		ID:     "corr-1",
		Emails: []string{"jane@example.com"},
	})
	// Empty mailbox at connect; the message appears on idle wake.
	conn := newFakeConn(nil)
	sup := NewSupervisor(testAccount(), testIMAPConfig(), &fakeDialer{conn: conn}, testPipeline(t, records), logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	require.Eventually(t, func() bool {
		return sup.State() == StateIdleWaiting
	}, 2*time.Second, 10*time.Millisecond)

	conn.mu.Lock()
	conn.msg = fakeMailMessage()
	conn.mu.Unlock()
	conn.updates <- &client.MailboxUpdate{Mailbox: &imap.MailboxStatus{Messages: 1}}

	require.Eventually(t, func() bool {
		return len(records.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSupervisorDuplicateUIDSkippedOnRescan(t *testing.T) {
	records := contacts.NewMemoryRecordStore(contacts.Correspondent{
		ID:     "corr-1",
		Emails: []string{"jane@example.com"},
	})
	conn := newFakeConn(fakeMailMessage())
	sup := NewSupervisor(testAccount(), testIMAPConfig(), &fakeDialer{conn: conn}, testPipeline(t, records), logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	require.Eventually(t, func() bool {
		return len(records.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Wake idle: the same UID is rescanned and deduplicated.
	conn.updates <- &client.MailboxUpdate{Mailbox: &imap.MailboxStatus{Messages: 1}}

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, records.Messages(), 1)
	assert.Len(t, records.Interactions("corr-1"), 1)
}
