package dedup

import (
	"context"
	"fmt"
	"time"

	"inflow/internal/constants"
	"inflow/internal/logger"
	"inflow/pkg/metrics"
)

// Store is the single owner of dedup state. Every ingestion attempt asks
// Seen first; Record is only called after the message has been fully
// persisted, so a persistence failure leaves the key unmarked and the next
// scan retries naturally.
type Store struct {
	repo   Repository
	cfg    Config
	logger logger.Logger

	stopKeyMetrics chan struct{}
	cancelMetrics  context.CancelFunc
}

func NewStore(repo Repository, cfg Config, log logger.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		repo:           repo,
		cfg:            cfg,
		logger:         log,
		stopKeyMetrics: make(chan struct{}),
		cancelMetrics:  cancel,
	}

	go s.updateKeyCountMetrics(ctx)

	return s
}

// Load verifies the durable store is reachable before the first poll cycle
// runs and reports how much state survived the restart.
func (s *Store) Load(ctx context.Context) error {
	count, err := s.repo.CountKeys(ctx, constants.CacheKeyPrefixProviderID)
	if err != nil {
		return fmt.Errorf("dedup store unavailable at startup: %w", err)
	}
	s.logger.Infow("Dedup store loaded", "provider_id_keys", count)
	return nil
}

// Seen reports whether the candidate has already been ingested, and which
// strategy matched. All three strategies are consulted before concluding
// "new": a duplicate wrongly called new is customer-visible, while a new
// message wrongly called duplicate is recovered by the backup scan.
func (s *Store) Seen(ctx context.Context, c Candidate) (bool, string, error) {
	start := time.Now()

	if c.ProviderID != "" {
		dup, err := s.repo.Exists(ctx, s.providerIDKey(c))
		if err != nil {
			s.observe(start, "error")
			return false, StrategyNone, err
		}
		if dup {
			s.observe(start, "duplicate")
			metrics.DedupChecksTotal.WithLabelValues(StrategyProviderID, "hit").Inc()
			return true, StrategyProviderID, nil
		}
		metrics.DedupChecksTotal.WithLabelValues(StrategyProviderID, "miss").Inc()
	}

	if c.ContentHash != "" && c.CorrespondentID != "" {
		dup, err := s.repo.InHistory(ctx, s.historyKey(c), c.ContentHash)
		if err != nil {
			s.observe(start, "error")
			return false, StrategyNone, err
		}
		if dup {
			s.observe(start, "duplicate")
			metrics.DedupChecksTotal.WithLabelValues(StrategyContentHash, "hit").Inc()
			return true, StrategyContentHash, nil
		}
		metrics.DedupChecksTotal.WithLabelValues(StrategyContentHash, "miss").Inc()
	}

	if c.FallbackKey != "" {
		dup, err := s.repo.Exists(ctx, s.fallbackKey(c))
		if err != nil {
			s.observe(start, "error")
			return false, StrategyNone, err
		}
		if dup {
			s.observe(start, "duplicate")
			metrics.DedupChecksTotal.WithLabelValues(StrategyConstructedKey, "hit").Inc()
			return true, StrategyConstructedKey, nil
		}
		metrics.DedupChecksTotal.WithLabelValues(StrategyConstructedKey, "miss").Inc()
	}

	s.observe(start, "unique")
	return false, StrategyNone, nil
}

// Record marks every applicable key for the candidate. Keys expire after the
// retention window, which is what bounds the store's size.
func (s *Store) Record(ctx context.Context, c Candidate) error {
	now := time.Now().Unix()

	if c.ProviderID != "" {
		if _, err := s.repo.SetNX(ctx, s.providerIDKey(c), now, s.cfg.Retention); err != nil {
			return err
		}
	}

	if c.FallbackKey != "" {
		if _, err := s.repo.SetNX(ctx, s.fallbackKey(c), now, s.cfg.Retention); err != nil {
			return err
		}
	}

	if c.ContentHash != "" && c.CorrespondentID != "" {
		if err := s.repo.PushHistory(ctx, s.historyKey(c), c.ContentHash, int64(s.cfg.HistorySize), s.cfg.Retention); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) providerIDKey(c Candidate) string {
	return constants.CacheKeyPrefixProviderID + c.AccountID + ":" + c.ProviderID
}

func (s *Store) fallbackKey(c Candidate) string {
	return constants.CacheKeyPrefixFallback + c.AccountID + ":" + c.FallbackKey
}

func (s *Store) historyKey(c Candidate) string {
	return constants.CacheKeyPrefixHistory + c.AccountID + ":" + c.CorrespondentID
}

func (s *Store) observe(start time.Time, status string) {
	metrics.ObserveDedupCheckDuration(time.Since(start), status)
}

// updateKeyCountMetrics periodically refreshes the live-key gauge.
func (s *Store) updateKeyCountMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			count, err := s.repo.CountKeys(ctx, constants.CacheKeyPrefixProviderID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Debugw("Failed to count dedup keys for metrics", "error", err)
				continue
			}
			metrics.SetDedupKeyCount(count)
		case <-s.stopKeyMetrics:
			return
		case <-ctx.Done():
			return
		}
	}
}

// StopKeyMetricsUpdater stops the background gauge updater.
func (s *Store) StopKeyMetricsUpdater() {
	if s.cancelMetrics != nil {
		s.cancelMetrics()
	}
	close(s.stopKeyMetrics)
}
