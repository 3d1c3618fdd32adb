package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// InboundEvent is the notification published after a message has been
// persisted. Consumers include the dashboard socket fan-out and downstream
// business workflows; none of them are awaited.
type InboundEvent struct {
	ID              string    `json:"id"`
	Channel         Channel   `json:"channel"`
	AccountID       string    `json:"account_id"`
	CorrespondentID string    `json:"correspondent_id"`
	Sender          string    `json:"sender"`
	Subject         string    `json:"subject,omitempty"`
	Summary         string    `json:"summary"`
	Timestamp       time.Time `json:"timestamp"`
}

const summaryMaxLen = 140

// NewInboundEvent builds an event for a persisted message. The summary is a
// bounded prefix of the normalized body.
func NewInboundEvent(msg NormalizedMessage, correspondentID string) InboundEvent {
	summary := truncateOnRune(msg.Body, summaryMaxLen)
	return InboundEvent{
		ID:              uuid.NewString(),
		Channel:         msg.Channel,
		AccountID:       msg.AccountID,
		CorrespondentID: correspondentID,
		Sender:          msg.Sender,
		Subject:         msg.Subject,
		Summary:         summary,
		Timestamp:       msg.Timestamp,
	}
}

// truncateOnRune bounds s to at most max bytes without splitting a multi-byte
// rune at the cut point.
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
