package imapchan

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap/client"

	"inflow/internal/config"
	"inflow/internal/constants"
	"inflow/internal/ingest"
	"inflow/internal/logger"
	apperrors "inflow/pkg/errors"
	"inflow/pkg/metrics"
	"inflow/pkg/retry"
)

// State is the supervisor's connection lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticated
	StateIdleWaiting
	StateIdleWoken
	// StateDisabled is terminal: the reconnect budget is spent, the channel
	// stays down until the process is restarted. Deliberate fail-stop so a
	// revoked credential is never hot-looped against.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateIdleWaiting:
		return "idle_waiting"
	case StateIdleWoken:
		return "idle_woken"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Supervisor owns one mailbox account: its connection, its idle loop, its
// scans. Accounts never share state; the app runs one Supervisor per
// configured account.
type Supervisor struct {
	account  config.IMAPAccountConfig
	cfg      config.IMAPConfig
	dialer   Dialer
	pipeline *ingest.Pipeline
	logger   logger.Logger
	schedule retry.Schedule

	state   atomic.Int32
	lastErr atomic.Value // string
}

func NewSupervisor(account config.IMAPAccountConfig, cfg config.IMAPConfig, dialer Dialer, pipeline *ingest.Pipeline, log logger.Logger) *Supervisor {
	return &Supervisor{
		account:  account,
		cfg:      cfg,
		dialer:   dialer,
		pipeline: pipeline,
		logger:   log,
		schedule: retry.NewSchedule(cfg.MaxReconnectAttempts, cfg.ReconnectInitial, cfg.ReconnectMax),
	}
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) AccountID() string {
	return s.account.ID
}

// LastError returns the most recent connection error, for health reporting.
func (s *Supervisor) LastError() string {
	if v := s.lastErr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Run drives the connect/idle/reconnect loop until the context is cancelled
// or the reconnect budget is spent. It never returns an error: every failure
// is absorbed into the reconnect schedule.
func (s *Supervisor) Run(ctx context.Context) {
	attempt := 0

	for {
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}

		s.setState(StateConnecting)
		conn, err := s.dialer.Dial(ctx, s.account)
		if err != nil {
			attempt++
			s.lastErr.Store(err.Error())
			if !s.scheduleReconnect(ctx, attempt, err) {
				return
			}
			continue
		}

		s.setState(StateAuthenticated)
		s.lastErr.Store("")
		attempt = 0
		s.logger.Infow("IMAP connection established",
			"account_id", s.account.ID, "mailbox", s.account.Mailbox)

		err = s.session(ctx, conn)
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}

		attempt++
		if err != nil {
			s.lastErr.Store(err.Error())
			s.logger.Warnw("IMAP session ended with error",
				"account_id", s.account.ID, "error", err)
		}
		if !s.scheduleReconnect(ctx, attempt, err) {
			return
		}
	}
}

// scheduleReconnect waits out the appropriate delay for the attempt and
// error class. It returns false once the channel must stop for good.
func (s *Supervisor) scheduleReconnect(ctx context.Context, attempt int, err error) bool {
	if s.schedule.Exhausted(attempt) {
		s.setState(StateDisabled)
		s.logger.Errorw("IMAP channel disabled after exhausting reconnect attempts; restart required",
			"account_id", s.account.ID, "attempts", attempt, "error", err)
		return false
	}

	// Rate limiting and bad credentials use long fixed delays: immediate
	// exponential retry is certain to fail again.
	var delay time.Duration
	var reason string
	switch {
	case apperrors.IsAuthFailed(err):
		delay, reason = s.cfg.AuthRetryDelay, "auth_failed"
	case apperrors.IsRateLimited(err):
		delay, reason = s.cfg.RateLimitRetryDelay, "rate_limited"
	default:
		delay, reason = s.schedule.NextDelay(attempt), "connection_error"
	}

	metrics.IMAPReconnectsTotal.WithLabelValues(s.account.ID, reason).Inc()
	s.logger.Infow("Scheduling IMAP reconnect",
		"account_id", s.account.ID, "attempt", attempt, "delay", delay, "reason", reason)

	select {
	case <-ctx.Done():
		s.setState(StateDisconnected)
		return false
	case <-time.After(delay):
		return true
	}
}

// session runs one connected lifetime: catch-up scan, then the idle loop
// punctuated by heartbeats and backup scans. Returns nil only on context
// cancellation.
func (s *Supervisor) session(ctx context.Context, conn Conn) error {
	defer s.logout(conn)

	// The post-connect scan recovers whatever arrived while disconnected.
	if err := s.scan(ctx, conn, "post_connect"); err != nil {
		return err
	}

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	backup := time.NewTicker(s.cfg.BackupScanInterval)
	defer backup.Stop()

	for {
		s.setState(StateIdleWaiting)

		stop := make(chan struct{})
		idleDone := make(chan error, 1)
		go func() {
			idleDone <- conn.Idle(stop, constants.DefaultIdlePollFallback)
		}()

		woken, err := s.waitForWake(ctx, conn, stop, idleDone, heartbeat.C, backup.C)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		if woken {
			s.setState(StateIdleWoken)
			if err := s.scan(ctx, conn, "idle_wake"); err != nil {
				return err
			}
		}
	}
}

// waitForWake blocks inside one idle round. It returns woken=true when a
// scan should run before the next round. The idle goroutine is always
// reaped before returning.
func (s *Supervisor) waitForWake(
	ctx context.Context,
	conn Conn,
	stop chan struct{},
	idleDone <-chan error,
	heartbeat <-chan time.Time,
	backup <-chan time.Time,
) (bool, error) {
	stopIdle := func() error {
		close(stop)
		select {
		case err := <-idleDone:
			return err
		case <-time.After(constants.IdleStopTimeout):
			return apperrors.ErrConnection.WithDetail("reason", "idle did not stop")
		}
	}

	timeout := time.NewTimer(s.cfg.IdleTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = stopIdle()
			return false, nil

		case update := <-conn.Updates():
			// Only mailbox updates signal new mail; expunge and status
			// chatter is ignored.
			if _, ok := update.(*client.MailboxUpdate); ok {
				if err := stopIdle(); err != nil {
					return false, err
				}
				return true, nil
			}

		case err := <-idleDone:
			if err != nil {
				return false, err
			}
			// Idle returned cleanly without being asked to stop; treat it
			// as a wake so the scan covers anything it saw.
			return true, nil

		case <-timeout.C:
			// Server idle window expiring is harmless; cycle the idle.
			if err := stopIdle(); err != nil {
				return false, err
			}
			return false, nil

		case <-heartbeat:
			if err := stopIdle(); err != nil {
				return false, err
			}
			if err := conn.Noop(); err != nil {
				return false, apperrors.ErrConnection.WithCause(err)
			}
			return false, nil

		case <-backup:
			// Defense against silently dropped push notifications.
			if err := stopIdle(); err != nil {
				return false, err
			}
			if err := s.scan(ctx, conn, "backup"); err != nil {
				return false, err
			}
			return false, nil
		}
	}
}

func (s *Supervisor) logout(conn Conn) {
	done := make(chan struct{})
	go func() {
		_ = conn.Logout()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(constants.LogoutGrace):
	}
}

func (s *Supervisor) setState(state State) {
	s.state.Store(int32(state))
	metrics.IMAPConnectionState.WithLabelValues(s.account.ID).Set(float64(state))
}

// HealthState feeds the ops health endpoint: the channel is unhealthy only
// when permanently disabled, since transient reconnects are expected.
func (s *Supervisor) HealthState() (connected, disabled bool, lastErr string) {
	st := s.State()
	return st == StateAuthenticated || st == StateIdleWaiting || st == StateIdleWoken,
		st == StateDisabled,
		s.LastError()
}
