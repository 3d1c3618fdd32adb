package models

import "time"

// Channel identifies which ingestion channel a message arrived on.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// RawMessage is one unit fetched from a provider. It exists only for the
// duration of a single ingestion pass and is never persisted as-is.
type RawMessage struct {
	Channel    Channel
	AccountID  string
	ProviderID string // provider-native identifier, may be empty
	Sender     string // provider-format email address or phone number
	Recipient  string
	Subject    string
	Body       string
	// Timestamp is the provider-declared time. Zero means the provider did
	// not supply one.
	Timestamp time.Time
	// Direction is the provider's own direction/type hint, when it has one.
	// Empty means "unknown, classify heuristically".
	Direction string
	// ContentType hints how Body should be decoded ("message/rfc822" for a
	// full mail payload, "text/plain" for SMS).
	ContentType string
}

// NormalizedMessage is the output of content normalization.
type NormalizedMessage struct {
	Channel   Channel
	AccountID string
	Sender    string // canonicalized
	Subject   string // email only
	Body      string // never empty; sentinel when extraction failed
	// Timestamp is the best available effective time: provider internal
	// date, then envelope date, then wall clock.
	Timestamp  time.Time
	ProviderID string
}
