package dedup

import (
	"context"
	"time"

	"inflow/internal/constants"
	"inflow/internal/logger"
)

// CursorStore tracks, per account, the newest timestamp ingested plus a
// bounded set of recently seen provider IDs. The recent-ID set exists
// because providers deliver messages with identical timestamps; the
// watermark alone would either skip or re-fetch those.
type CursorStore struct {
	repo      CursorRepository
	retention time.Duration
	logger    logger.Logger
}

func NewCursorStore(repo CursorRepository, retention time.Duration, log logger.Logger) *CursorStore {
	return &CursorStore{repo: repo, retention: retention, logger: log}
}

// Watermark returns the stored high-water timestamp for the account, or the
// zero time when the account has never been polled.
func (c *CursorStore) Watermark(ctx context.Context, accountID string) (time.Time, error) {
	return c.repo.GetWatermark(ctx, c.watermarkKey(accountID))
}

// SeenRecently reports whether the provider ID sits in the account's
// recent-ID set.
func (c *CursorStore) SeenRecently(ctx context.Context, accountID, providerID string) (bool, error) {
	if providerID == "" {
		return false, nil
	}
	return c.repo.HasRecentID(ctx, c.recentKey(accountID), providerID)
}

// Advance records a successfully ingested message: the provider ID joins the
// recent-ID set and the watermark moves forward if the message is newer.
// The watermark never moves backward, so out-of-order delivery within a
// page is safe.
func (c *CursorStore) Advance(ctx context.Context, accountID, providerID string, ts time.Time) error {
	if providerID != "" {
		if err := c.repo.AddRecentID(ctx, c.recentKey(accountID), providerID, ts); err != nil {
			return err
		}
	}

	current, err := c.repo.GetWatermark(ctx, c.watermarkKey(accountID))
	if err != nil {
		return err
	}
	if ts.After(current) {
		return c.repo.SetWatermark(ctx, c.watermarkKey(accountID), ts)
	}
	return nil
}

// Compact drops recent IDs older than the retention window. Anything that
// old is already behind the watermark and cannot be re-fetched.
func (c *CursorStore) Compact(ctx context.Context, accountID string) error {
	cutoff := time.Now().Add(-c.retention)
	removed, err := c.repo.TrimRecentIDs(ctx, c.recentKey(accountID), cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.logger.Debugw("Compacted poll cursor", "account_id", accountID, "removed", removed)
	}
	return nil
}

// RunCompactor periodically compacts every listed account until the context
// is cancelled.
func (c *CursorStore) RunCompactor(ctx context.Context, accountIDs []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range accountIDs {
				if err := c.Compact(ctx, id); err != nil {
					c.logger.Warnw("Cursor compaction failed", "account_id", id, "error", err)
				}
			}
		}
	}
}

func (c *CursorStore) watermarkKey(accountID string) string {
	return constants.CacheKeyPrefixCursor + "wm:" + accountID
}

func (c *CursorStore) recentKey(accountID string) string {
	return constants.CacheKeyPrefixCursor + "recent:" + accountID
}
