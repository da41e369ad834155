package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// NoopEventBus logs events without sending them to a broker. Useful for local dev.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	slog.DebugContext(ctx, "event::order_created", "order_id", order.ID)
	return nil
}

func (n *NoopEventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error {
	slog.DebugContext(ctx, "event::order_status_changed", "order_id", order.ID, "from", previous, "to", order.Status, "reason", reason)
	return nil
}

func (n *NoopEventBus) PublishOrderRefunded(ctx context.Context, order domain.Order, amountCents int64, reason string) error {
	slog.DebugContext(ctx, "event::order_refunded", "order_id", order.ID, "amount_cents", amountCents, "reason", reason)
	return nil
}
