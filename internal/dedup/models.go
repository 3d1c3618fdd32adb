package dedup

import "time"

type Config struct {
	Retention         time.Duration
	HistorySize       int
	BodyPrefixLen     int
	TimestampRounding time.Duration
}

// Candidate carries everything the three dedup strategies need for one
// message. FallbackKey and ContentHash are precomputed by the Hasher so the
// store itself never touches message bodies.
type Candidate struct {
	AccountID       string
	CorrespondentID string
	ProviderID      string // optional
	ContentHash     string
	FallbackKey     string
	Timestamp       time.Time
}

// Strategy names reported by Seen for logging and metrics.
const (
	StrategyProviderID     = "provider_id"
	StrategyContentHash    = "content_hash"
	StrategyConstructedKey = "constructed_key"
	StrategyNone           = "none"
)
