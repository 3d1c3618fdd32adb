package imapchan

import (
	"context"
	"fmt"
	"io"

	"github.com/emersion/go-imap"

	"inflow/internal/ingest"
	"inflow/pkg/metrics"
	"inflow/pkg/models"
)

// scan fetches the most recent catchUpWindow messages from the selected
// mailbox and feeds each through the pipeline. It is the single recovery
// mechanism behind every trigger: post-connect, idle wakeup, backup timer.
func (s *Supervisor) scan(ctx context.Context, conn Conn, trigger string) error {
	metrics.IMAPScansTotal.WithLabelValues(s.account.ID, trigger).Inc()

	status, err := conn.Select(s.account.Mailbox)
	if err != nil {
		return fmt.Errorf("select %s: %w", s.account.Mailbox, err)
	}
	if status.Messages == 0 {
		return nil
	}

	window := uint32(s.cfg.CatchUpWindow)
	from := uint32(1)
	if status.Messages > window {
		from = status.Messages - window + 1
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(from, status.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		imap.FetchInternalDate,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, window)
	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- conn.Fetch(seqset, items, messages)
	}()

	var ingested, skipped, failed int
	for msg := range messages {
		if ctx.Err() != nil {
			break
		}

		raw, ok := s.toRawMessage(status.UidValidity, msg, section)
		if !ok {
			continue
		}

		switch outcome := s.pipeline.Ingest(ctx, raw); outcome.Status {
		case ingest.StatusIngested:
			ingested++
		case ingest.StatusSkipped:
			skipped++
		default:
			// Logged at message granularity by the pipeline; one bad
			// message never halts the rest of the batch.
			failed++
		}
	}

	if err := <-fetchDone; err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if ingested > 0 || failed > 0 {
		s.logger.Infow("Mailbox scan complete",
			"account_id", s.account.ID, "trigger", trigger,
			"ingested", ingested, "skipped", skipped, "failed", failed)
	}
	return ctx.Err()
}

// toRawMessage converts a fetched IMAP message. The provider ID pairs
// UIDVALIDITY with the message UID: UIDs alone are only stable within one
// UIDVALIDITY generation of the mailbox.
func (s *Supervisor) toRawMessage(uidValidity uint32, msg *imap.Message, section *imap.BodySectionName) (models.RawMessage, bool) {
	if msg == nil || msg.Envelope == nil {
		return models.RawMessage{}, false
	}

	sender := ""
	if len(msg.Envelope.From) > 0 {
		sender = msg.Envelope.From[0].Address()
	}
	if sender == "" {
		return models.RawMessage{}, false
	}

	recipient := ""
	if len(msg.Envelope.To) > 0 {
		recipient = msg.Envelope.To[0].Address()
	}

	body := ""
	if literal := msg.GetBody(section); literal != nil {
		if b, err := io.ReadAll(literal); err == nil {
			body = string(b)
		} else {
			s.logger.Warnw("Failed to read message body",
				"account_id", s.account.ID, "uid", msg.Uid, "error", err)
		}
	}

	ts := msg.InternalDate
	if ts.IsZero() {
		ts = msg.Envelope.Date
	}

	return models.RawMessage{
		Channel:     models.ChannelEmail,
		AccountID:   s.account.ID,
		ProviderID:  fmt.Sprintf("%d:%d", uidValidity, msg.Uid),
		Sender:      sender,
		Recipient:   recipient,
		Subject:     msg.Envelope.Subject,
		Body:        body,
		Timestamp:   ts,
		ContentType: "message/rfc822",
	}, true
}
