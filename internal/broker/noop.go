package broker

import (
	"context"

	"inflow/pkg/models"
)

// NopProducer discards events. Used by broker-less deployments and tests.
type NopProducer struct{}

func NewNopProducer() *NopProducer {
	return &NopProducer{}
}

func (p *NopProducer) Publish(_ context.Context, _ string, _ models.InboundEvent) error {
	return nil
}

func (p *NopProducer) Close() error {
	return nil
}
