package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

// Redis key prefixes. Dedup keys are scoped per account below the prefix.
const (
	CacheKeyPrefixProviderID = "dedup:pid:"
	CacheKeyPrefixFallback   = "dedup:key:"
	CacheKeyPrefixHistory    = "dedup:hist:"
	CacheKeyPrefixCursor     = "cursor:"
)

const (
	DefaultEventTopic = "inbound_messages"
)

const (
	ShutdownTimeout = 5 * time.Second
	// LogoutGrace bounds how long a supervisor may spend closing its
	// connection cleanly on shutdown.
	LogoutGrace = 5 * time.Second
)

// IMAP channel defaults.
const (
	DefaultCatchUpWindow        = 20
	DefaultHeartbeatInterval    = 60 * time.Second
	DefaultBackupScanInterval   = 30 * time.Minute
	DefaultIdleTimeout          = 25 * time.Minute
	DefaultIdlePollFallback     = 2 * time.Minute
	// IdleStopTimeout bounds the wait for an idle round to acknowledge the
	// stop signal before the connection is declared broken.
	IdleStopTimeout = 30 * time.Second
	DefaultMaxReconnectAttempts = 6
	DefaultReconnectInitial     = 5 * time.Second
	DefaultReconnectMax         = 5 * time.Minute
	// Auth and rate-limit failures get fixed long delays instead of the
	// exponential schedule: immediate retry is certain to fail.
	DefaultAuthRetryDelay      = 15 * time.Minute
	DefaultRateLimitRetryDelay = 5 * time.Minute
)

// SMS channel defaults.
const (
	DefaultSMSPollInterval = 15 * time.Second
	DefaultSMSPageSize     = 50
	// DefaultMinNumericSenderDigits is the classifier threshold: a sender
	// with at least this many digits and nothing else is treated as a phone
	// number, hence inbound. Inherited from production trial-and-error, so
	// it stays configurable.
	DefaultMinNumericSenderDigits = 7
)

// Dedup and cursor defaults.
const (
	DefaultRetention         = 30 * 24 * time.Hour
	DefaultHistorySize       = 50
	DefaultBodyPrefixLen     = 64
	DefaultTimestampRounding = time.Minute
	DefaultCompactInterval   = 6 * time.Hour
)

const (
	DefaultCountryCode = "1"
)
