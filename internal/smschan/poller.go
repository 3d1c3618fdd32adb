package smschan

import (
	"context"
	"time"

	"inflow/internal/config"
	"inflow/internal/ingest"
	"inflow/internal/logger"
	apperrors "inflow/pkg/errors"
	"inflow/pkg/metrics"
	"inflow/pkg/models"
)

// Poller drives the SMS channel: one bounded listing request per tick, each
// candidate fed through the shared pipeline. There is no connection to
// supervise and no backoff; a failed cycle is logged and the next tick
// retries independently.
type Poller struct {
	cfg      config.SMSConfig
	client   *Client
	pipeline *ingest.Pipeline
	logger   logger.Logger
}

func NewPoller(cfg config.SMSConfig, client *Client, pipeline *ingest.Pipeline, log logger.Logger) *Poller {
	return &Poller{cfg: cfg, client: client, pipeline: pipeline, logger: log}
}

// Run polls until the context is cancelled. The first cycle runs
// immediately so a restart does not wait out a full interval.
func (p *Poller) Run(ctx context.Context) {
	p.cycle(ctx)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.SMSPollCyclesTotal.WithLabelValues(p.cfg.AccountID, status).Inc()
		metrics.SMSPollDuration.WithLabelValues(p.cfg.AccountID).Observe(float64(time.Since(start).Milliseconds()))
	}()
	defer func() {
		if r := recover(); r != nil {
			status = "error"
			apperrors.RecoverPanicWithCallback(r, func(e error) {
				p.logger.Errorw("Panic during SMS poll cycle", "account_id", p.cfg.AccountID, "error", e)
			})
		}
	}()

	listed, err := p.client.ListRecent(ctx)
	if err != nil {
		if ctx.Err() == nil {
			status = "error"
			p.logger.Warnw("SMS poll cycle failed", "account_id", p.cfg.AccountID, "error", err)
		}
		return
	}

	var ingested, skipped, failed int
	for _, msg := range listed {
		if ctx.Err() != nil {
			return
		}

		// Recent-ID short-circuit: already-handled provider IDs skip the
		// full pipeline pass entirely.
		if msg.ID != "" {
			seen, err := p.pipeline.SeenRecently(ctx, p.cfg.AccountID, msg.ID)
			if err == nil && seen {
				skipped++
				continue
			}
		}

		switch outcome := p.pipeline.Ingest(ctx, p.toRawMessage(msg)); outcome.Status {
		case ingest.StatusIngested:
			ingested++
		case ingest.StatusSkipped:
			skipped++
		default:
			failed++
		}
	}

	if failed > 0 {
		status = "partial"
	}
	if ingested > 0 || failed > 0 {
		p.logger.Infow("SMS poll cycle complete",
			"account_id", p.cfg.AccountID, "listed", len(listed),
			"ingested", ingested, "skipped", skipped, "failed", failed)
	}
}

func (p *Poller) toRawMessage(msg smsMessage) models.RawMessage {
	return models.RawMessage{
		Channel:     models.ChannelSMS,
		AccountID:   p.cfg.AccountID,
		ProviderID:  msg.ID,
		Sender:      msg.From,
		Recipient:   msg.To,
		Body:        msg.Body,
		Timestamp:   parseTimestamp(msg.Timestamp),
		Direction:   msg.Type,
		ContentType: "text/plain",
	}
}
