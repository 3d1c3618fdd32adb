package contacts

import (
	"context"

	"inflow/pkg/circuitbreaker"
	"inflow/pkg/models"
)

// BreakerStore wraps a RecordStore with a circuit breaker so a struggling
// record store sheds load quickly instead of stalling every scan cycle.
// Tripped calls surface as ordinary errors; the pipeline treats them like
// any other persistence failure and retries on the next scan.
type BreakerStore struct {
	inner   RecordStore
	breaker *circuitbreaker.Wrapper
}

func NewBreakerStore(inner RecordStore, breaker *circuitbreaker.Wrapper) *BreakerStore {
	return &BreakerStore{inner: inner, breaker: breaker}
}

func (s *BreakerStore) FindCorrespondentByIdentifier(ctx context.Context, channel models.Channel, identifier string) (*Correspondent, error) {
	res, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.inner.FindCorrespondentByIdentifier(ctx, channel, identifier)
	})
	s.breaker.RecordRequest(err == nil)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	correspondent, _ := res.(*Correspondent)
	return correspondent, nil
}

func (s *BreakerStore) PersistMessage(ctx context.Context, correspondentID string, msg models.NormalizedMessage) (string, error) {
	res, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.inner.PersistMessage(ctx, correspondentID, msg)
	})
	s.breaker.RecordRequest(err == nil)
	if err != nil {
		return "", err
	}
	id, _ := res.(string)
	return id, nil
}

func (s *BreakerStore) AppendInteraction(ctx context.Context, correspondentID string, interaction Interaction) error {
	_, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, s.inner.AppendInteraction(ctx, correspondentID, interaction)
	})
	s.breaker.RecordRequest(err == nil)
	return err
}

// Ping bypasses the breaker so health checks report the store's real state
// even while the breaker is open.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
