package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inflow/internal/logger"
)

func testConfig() Config {
	return Config{
		Retention:         30 * 24 * time.Hour,
		HistorySize:       50,
		BodyPrefixLen:     64,
		TimestampRounding: time.Minute,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(NewMemoryRepository(), testConfig(), logger.NopLogger())
	t.Cleanup(s.StopKeyMetricsUpdater)
	return s
}

func TestStoreSeenProviderID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := Candidate{
		AccountID:  "acct-1",
		ProviderID: "SM123",
		Timestamp:  time.Now(),
	}

	seen, strategy, err := store.Seen(ctx, c)
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, StrategyNone, strategy)

	require.NoError(t, store.Record(ctx, c))

	seen, strategy, err = store.Seen(ctx, c)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, StrategyProviderID, strategy)
}

func TestStoreSeenContentHashWithoutProviderID(t *testing.T) {
	store := newTestStore(t)
	hasher := NewHasher(64, time.Minute)
	ctx := context.Background()

	body := "Hello, yes please book me in."
	c := Candidate{
		AccountID:       "acct-1",
		CorrespondentID: "corr-9",
		ContentHash:     hasher.ContentHash(body),
		Timestamp:       time.Now(),
	}

	require.NoError(t, store.Record(ctx, c))

	// Retried delivery: no provider ID, different timestamp, same body.
	retry := c
	retry.Timestamp = c.Timestamp.Add(2 * time.Hour)

	seen, strategy, err := store.Seen(ctx, retry)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, StrategyContentHash, strategy)
}

func TestStoreContentHashScopedToCorrespondent(t *testing.T) {
	store := newTestStore(t)
	hasher := NewHasher(64, time.Minute)
	ctx := context.Background()

	hash := hasher.ContentHash("Thanks!")

	require.NoError(t, store.Record(ctx, Candidate{
		AccountID:       "acct-1",
		CorrespondentID: "corr-a",
		ContentHash:     hash,
	}))

	// The same short body from a different correspondent is a new message.
	seen, _, err := store.Seen(ctx, Candidate{
		AccountID:       "acct-1",
		CorrespondentID: "corr-b",
		ContentHash:     hash,
	})
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestStoreSeenFallbackKey(t *testing.T) {
	store := newTestStore(t)
	hasher := NewHasher(64, time.Minute)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 10, 30, 12, 0, time.UTC)
	body := "Running 10 minutes late, sorry!"

	c := Candidate{
		AccountID:   "acct-1",
		FallbackKey: hasher.FallbackKey("+15550001111", base, body),
	}
	require.NoError(t, store.Record(ctx, c))

	// Redelivery 20s later rounds to the same minute bucket.
	retry := Candidate{
		AccountID:   "acct-1",
		FallbackKey: hasher.FallbackKey("+15550001111", base.Add(20*time.Second), body),
	}
	seen, strategy, err := store.Seen(ctx, retry)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, StrategyConstructedKey, strategy)
}

func TestStoreHistoryEviction(t *testing.T) {
	cfg := testConfig()
	cfg.HistorySize = 3
	store := NewStore(NewMemoryRepository(), cfg, logger.NopLogger())
	t.Cleanup(store.StopKeyMetricsUpdater)

	hasher := NewHasher(64, time.Minute)
	ctx := context.Background()

	bodies := []string{"one", "two", "three", "four"}
	for _, b := range bodies {
		require.NoError(t, store.Record(ctx, Candidate{
			AccountID:       "acct-1",
			CorrespondentID: "corr-1",
			ContentHash:     hasher.ContentHash(b),
		}))
	}

	// "one" fell off the bounded history.
	seen, _, err := store.Seen(ctx, Candidate{
		AccountID:       "acct-1",
		CorrespondentID: "corr-1",
		ContentHash:     hasher.ContentHash("one"),
	})
	require.NoError(t, err)
	assert.False(t, seen)

	seen, _, err = store.Seen(ctx, Candidate{
		AccountID:       "acct-1",
		CorrespondentID: "corr-1",
		ContentHash:     hasher.ContentHash("four"),
	})
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestHasherFallbackKeyRounding(t *testing.T) {
	hasher := NewHasher(64, time.Minute)
	base := time.Date(2026, 3, 14, 10, 30, 5, 0, time.UTC)

	k1 := hasher.FallbackKey("Alice@Example.com", base, "hello")
	k2 := hasher.FallbackKey("alice@example.com ", base.Add(40*time.Second), "hello")
	k3 := hasher.FallbackKey("alice@example.com", base.Add(2*time.Minute), "hello")

	assert.Equal(t, k1, k2, "sender case, whitespace and sub-minute jitter must not change the key")
	assert.NotEqual(t, k1, k3)
}

func TestHasherBodyPrefixBound(t *testing.T) {
	hasher := NewHasher(8, time.Minute)
	ts := time.Now()

	k1 := hasher.FallbackKey("a@b.c", ts, "12345678 tail one")
	k2 := hasher.FallbackKey("a@b.c", ts, "12345678 tail two")

	assert.Equal(t, k1, k2, "only the prefix participates in the key")
}

func TestCursorStoreAdvance(t *testing.T) {
	cursor := NewCursorStore(NewMemoryCursorRepository(), 30*24*time.Hour, logger.NopLogger())
	ctx := context.Background()

	wm, err := cursor.Watermark(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, wm.IsZero())

	t1 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cursor.Advance(ctx, "acct-1", "SM1", t1))

	wm, err = cursor.Watermark(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, wm.Equal(t1))

	// Out-of-order older message must not move the watermark backward.
	require.NoError(t, cursor.Advance(ctx, "acct-1", "SM0", t1.Add(-time.Hour)))
	wm, err = cursor.Watermark(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, wm.Equal(t1))

	seen, err := cursor.SeenRecently(ctx, "acct-1", "SM1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = cursor.SeenRecently(ctx, "acct-1", "SM99")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCursorStoreCompact(t *testing.T) {
	cursor := NewCursorStore(NewMemoryCursorRepository(), time.Hour, logger.NopLogger())
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()

	require.NoError(t, cursor.Advance(ctx, "acct-1", "old-id", old))
	require.NoError(t, cursor.Advance(ctx, "acct-1", "fresh-id", fresh))

	require.NoError(t, cursor.Compact(ctx, "acct-1"))

	seen, err := cursor.SeenRecently(ctx, "acct-1", "old-id")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = cursor.SeenRecently(ctx, "acct-1", "fresh-id")
	require.NoError(t, err)
	assert.True(t, seen)
}
