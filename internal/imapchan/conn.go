package imapchan

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	idle "github.com/emersion/go-imap-idle"
	"github.com/emersion/go-imap/client"

	"inflow/internal/config"
	apperrors "inflow/pkg/errors"
)

// Conn is the slice of IMAP client behavior the supervisor needs. The real
// implementation wraps emersion/go-imap; tests substitute a fake.
type Conn interface {
	Select(mailbox string) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	// Idle blocks until stop is closed or the server connection breaks.
	// Servers without IDLE support are polled at the fallback interval.
	Idle(stop <-chan struct{}, pollFallback time.Duration) error
	Updates() <-chan client.Update
	Noop() error
	Logout() error
}

// Dialer opens an authenticated connection with the target mailbox
// selected.
type Dialer interface {
	Dial(ctx context.Context, account config.IMAPAccountConfig) (Conn, error)
}

// TLSDialer is the production Dialer.
type TLSDialer struct{}

func (TLSDialer) Dial(ctx context.Context, account config.IMAPAccountConfig) (Conn, error) {
	address := fmt.Sprintf("%s:%d", account.Host, account.Port)

	c, err := client.DialTLS(address, &tls.Config{ServerName: account.Host})
	if err != nil {
		return nil, classifyDialError(err)
	}

	if err := c.Login(account.Username, account.Password); err != nil {
		_ = c.Logout()
		return nil, classifyDialError(err)
	}

	if _, err := c.Select(account.Mailbox, true); err != nil {
		_ = c.Logout()
		return nil, classifyDialError(err)
	}

	updates := make(chan client.Update, 64)
	c.Updates = updates

	return &imapConn{
		client:  c,
		idle:    idle.NewClient(c),
		updates: updates,
	}, nil
}

type imapConn struct {
	client  *client.Client
	idle    *idle.Client
	updates chan client.Update
}

func (c *imapConn) Select(mailbox string) (*imap.MailboxStatus, error) {
	return c.client.Select(mailbox, true)
}

func (c *imapConn) Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	return c.client.Fetch(seqset, items, ch)
}

func (c *imapConn) Idle(stop <-chan struct{}, pollFallback time.Duration) error {
	return c.idle.IdleWithFallback(stop, pollFallback)
}

func (c *imapConn) Updates() <-chan client.Update {
	return c.updates
}

func (c *imapConn) Noop() error {
	return c.client.Noop()
}

func (c *imapConn) Logout() error {
	return c.client.Logout()
}

// classifyDialError maps provider responses onto the error taxonomy so the
// supervisor can pick the right retry delay.
func classifyDialError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "invalid credentials") ||
		strings.Contains(msg, "login failed") ||
		strings.Contains(msg, "authenticationfailed"):
		return apperrors.ErrAuthFailed.WithCause(err)
	case strings.Contains(msg, "rate") || strings.Contains(msg, "too many"):
		return apperrors.ErrRateLimited.WithCause(err)
	default:
		return apperrors.ErrConnection.WithCause(err)
	}
}
