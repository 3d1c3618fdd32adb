package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateRawMessage rejects candidates that cannot possibly be ingested.
// A missing provider ID or timestamp is fine (the pipeline compensates); a
// missing sender is not, since there is nothing to resolve.
func ValidateRawMessage(msg *RawMessage) error {
	if msg == nil {
		return &ValidationError{Field: "message", Message: "raw message cannot be nil"}
	}
	if msg.Channel != ChannelEmail && msg.Channel != ChannelSMS {
		return &ValidationError{Field: "channel", Message: fmt.Sprintf("unknown channel %q", msg.Channel)}
	}
	if msg.AccountID == "" {
		return &ValidationError{Field: "account_id", Message: "account ID is required"}
	}
	if msg.Sender == "" {
		return &ValidationError{Field: "sender", Message: "sender identifier is required"}
	}
	return nil
}

// ValidateInboundEvent guards the producer side of the event topic.
func ValidateInboundEvent(ev *InboundEvent) error {
	if ev == nil {
		return &ValidationError{Field: "event", Message: "event cannot be nil"}
	}
	if ev.ID == "" {
		return &ValidationError{Field: "id", Message: "event ID is required"}
	}
	if ev.CorrespondentID == "" {
		return &ValidationError{Field: "correspondent_id", Message: "correspondent ID is required"}
	}
	return nil
}
