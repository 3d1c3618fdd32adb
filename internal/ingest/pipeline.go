package ingest

import (
	"context"
	"time"

	"inflow/internal/broker"
	"inflow/internal/contacts"
	"inflow/internal/dedup"
	"inflow/internal/logger"
	"inflow/internal/normalize"
	apperrors "inflow/pkg/errors"
	"inflow/pkg/metrics"
	"inflow/pkg/models"
)

// Pipeline is the single path every candidate message takes, regardless of
// channel. It is the only component that writes dedup and cursor state.
type Pipeline struct {
	classifier *Classifier
	resolver   *contacts.Resolver
	store      contacts.RecordStore
	normalizer *normalize.Normalizer
	hasher     *dedup.Hasher
	dedup      *dedup.Store
	cursor     *dedup.CursorStore
	producer   broker.Producer
	topic      string
	logger     logger.Logger
}

func NewPipeline(
	classifier *Classifier,
	resolver *contacts.Resolver,
	store contacts.RecordStore,
	normalizer *normalize.Normalizer,
	hasher *dedup.Hasher,
	dedupStore *dedup.Store,
	cursor *dedup.CursorStore,
	producer broker.Producer,
	topic string,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		resolver:   resolver,
		store:      store,
		normalizer: normalizer,
		hasher:     hasher,
		dedup:      dedupStore,
		cursor:     cursor,
		producer:   producer,
		topic:      topic,
		logger:     log,
	}
}

// Ingest processes one candidate to a terminal outcome. Dedup and cursor
// state only advance after the message is fully persisted, so a failure
// anywhere leaves the message eligible for the next scan.
func (p *Pipeline) Ingest(ctx context.Context, raw models.RawMessage) Outcome {
	start := time.Now()
	outcome := p.ingest(ctx, raw)
	p.recordOutcome(raw, outcome, time.Since(start))
	return outcome
}

func (p *Pipeline) ingest(ctx context.Context, raw models.RawMessage) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanicWithCallback(r, func(e error) {
				p.logger.Errorw("Panic during message ingestion",
					"channel", raw.Channel, "account_id", raw.AccountID, "error", e)
			})
			outcome = Failed(err)
		}
	}()

	if err := models.ValidateRawMessage(&raw); err != nil {
		return Failed(err)
	}

	if !p.classifier.IsInbound(raw) {
		return Skipped(ReasonOutbound)
	}

	correspondent, err := p.resolver.Resolve(ctx, raw.Channel, raw.Sender)
	if err != nil {
		if apperrors.IsNoCorrespondent(err) {
			p.logger.Infow("Skipping message with no matching correspondent",
				"channel", raw.Channel, "account_id", raw.AccountID, "sender", raw.Sender)
			return Skipped(ReasonNoCorrespondent)
		}
		return Failed(err)
	}

	normalized := p.normalize(raw)

	candidate := dedup.Candidate{
		AccountID:       raw.AccountID,
		CorrespondentID: correspondent.ID,
		ProviderID:      raw.ProviderID,
		ContentHash:     p.hasher.ContentHash(normalized.Body),
		FallbackKey:     p.hasher.FallbackKey(normalized.Sender, normalized.Timestamp, normalized.Body),
		Timestamp:       normalized.Timestamp,
	}

	seen, strategy, err := p.dedup.Seen(ctx, candidate)
	if err != nil {
		// A dedup store outage must fail the message rather than risk a
		// duplicate ingest; the next scan retries it.
		return Failed(apperrors.ErrPersistence.WithCause(err))
	}
	if seen {
		p.logger.Debugw("Duplicate message skipped",
			"channel", raw.Channel, "account_id", raw.AccountID, "strategy", strategy)
		return Skipped(ReasonDuplicate)
	}

	messageID, err := p.store.PersistMessage(ctx, correspondent.ID, normalized)
	if err != nil {
		p.logger.Errorw("Failed to persist message",
			"channel", raw.Channel, "account_id", raw.AccountID,
			"correspondent_id", correspondent.ID, "error", err)
		return Failed(apperrors.ErrPersistence.WithCause(err))
	}

	interaction := contacts.Interaction{
		Channel:   normalized.Channel,
		MessageID: messageID,
		Summary:   normalized.Body,
		Timestamp: normalized.Timestamp,
	}
	if err := p.store.AppendInteraction(ctx, correspondent.ID, interaction); err != nil {
		p.logger.Errorw("Failed to append interaction",
			"correspondent_id", correspondent.ID, "message_id", messageID, "error", err)
		return Failed(apperrors.ErrPersistence.WithCause(err))
	}

	if err := p.dedup.Record(ctx, candidate); err != nil {
		// The message is persisted; a missed dedup mark means at worst the
		// next delivery attempt hits the content-hash or fallback strategy.
		p.logger.Warnw("Failed to record dedup keys", "account_id", raw.AccountID, "error", err)
	}
	if err := p.cursor.Advance(ctx, raw.AccountID, raw.ProviderID, normalized.Timestamp); err != nil {
		p.logger.Warnw("Failed to advance poll cursor", "account_id", raw.AccountID, "error", err)
	}

	p.emit(normalized, correspondent.ID)

	return Ingested()
}

func (p *Pipeline) normalize(raw models.RawMessage) models.NormalizedMessage {
	start := time.Now()
	res := p.normalizer.Normalize(raw.Body, normalize.Hints{
		Channel:     raw.Channel,
		ContentType: raw.ContentType,
	})
	metrics.NormalizeDuration.WithLabelValues(string(raw.Channel)).Observe(float64(time.Since(start).Milliseconds()))
	if res.UsedSentinel {
		metrics.NormalizeSentinelTotal.WithLabelValues(string(raw.Channel)).Inc()
		p.logger.Warnw("Content extraction produced nothing usable, using sentinel body",
			"channel", raw.Channel, "account_id", raw.AccountID, "provider_id", raw.ProviderID)
	}

	subject := raw.Subject
	if subject == "" {
		subject = res.Subject
	}

	// Effective timestamp: provider clock, then envelope date, then now.
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = res.Date
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return models.NormalizedMessage{
		Channel:    raw.Channel,
		AccountID:  raw.AccountID,
		Sender:     p.resolver.Canonicalize(raw.Channel, raw.Sender),
		Subject:    subject,
		Body:       res.Body,
		Timestamp:  ts,
		ProviderID: raw.ProviderID,
	}
}

// emit publishes the inbound event without awaiting consumers. Publish
// failure is logged and swallowed: the message is already persisted.
func (p *Pipeline) emit(msg models.NormalizedMessage, correspondentID string) {
	event := models.NewInboundEvent(msg, correspondentID)

	publishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				apperrors.RecoverPanicWithCallback(r, func(e error) {
					p.logger.Errorw("Panic during event publish", "event_id", event.ID, "error", e)
				})
			}
		}()
		if err := p.producer.Publish(publishCtx, p.topic, event); err != nil {
			p.logger.Warnw("Failed to publish inbound event",
				"event_id", event.ID, "correspondent_id", correspondentID, "error", err)
		}
	}()
}

func (p *Pipeline) recordOutcome(raw models.RawMessage, outcome Outcome, elapsed time.Duration) {
	metrics.IngestedMessagesTotal.WithLabelValues(string(raw.Channel), outcome.Status.String()).Inc()
	metrics.ObserveIngestDuration(string(raw.Channel), outcome.Status.String(), elapsed)

	if outcome.Status == StatusFailed && outcome.Err != nil {
		p.logger.Errorw("Message ingestion failed",
			"channel", raw.Channel, "account_id", raw.AccountID,
			"provider_id", raw.ProviderID, "error", outcome.Err)
	}
}

// CursorWatermark exposes the account watermark for supervisors, which read
// cursor state only through the pipeline.
func (p *Pipeline) CursorWatermark(ctx context.Context, accountID string) (time.Time, error) {
	return p.cursor.Watermark(ctx, accountID)
}

// SeenRecently reports whether a provider ID is in the account's recent-ID
// set, letting pollers drop already-handled messages before a fetch.
func (p *Pipeline) SeenRecently(ctx context.Context, accountID, providerID string) (bool, error) {
	return p.cursor.SeenRecently(ctx, accountID, providerID)
}

// RegisterSelfAddresses configures outbound detection for an email account.
func (p *Pipeline) RegisterSelfAddresses(accountID string, addresses []string) {
	p.classifier.RegisterSelfAddresses(accountID, addresses)
}
