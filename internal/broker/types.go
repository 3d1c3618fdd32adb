package broker

import (
	"context"

	"inflow/pkg/models"
)

// Producer publishes inbound events. Publishing is best-effort from the
// pipeline's point of view: callers log failures and move on.
type Producer interface {
	Publish(ctx context.Context, topic string, ev models.InboundEvent) error
	Close() error
}
