package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Hasher derives the content hash and the constructed fallback key for a
// message. Both are deterministic so retried deliveries of the same message
// collapse onto the same keys.
type Hasher struct {
	bodyPrefixLen int
	rounding      time.Duration
}

func NewHasher(bodyPrefixLen int, rounding time.Duration) *Hasher {
	if bodyPrefixLen <= 0 {
		bodyPrefixLen = 64
	}
	if rounding <= 0 {
		rounding = time.Minute
	}
	return &Hasher{bodyPrefixLen: bodyPrefixLen, rounding: rounding}
}

// ContentHash hashes the full normalized body.
func (h *Hasher) ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// FallbackKey builds the third-strategy key from sender, rounded timestamp
// and a body prefix. It covers providers that supply neither a stable ID nor
// deterministic payload framing across retries: the rounding absorbs clock
// jitter between the retried deliveries.
func (h *Hasher) FallbackKey(sender string, ts time.Time, body string) string {
	prefix := body
	if len(prefix) > h.bodyPrefixLen {
		prefix = prefix[:h.bodyPrefixLen]
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(sender)))
	b.WriteString("|")
	b.WriteString(ts.UTC().Truncate(h.rounding).Format(time.RFC3339))
	b.WriteString("|")
	b.WriteString(prefix)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
