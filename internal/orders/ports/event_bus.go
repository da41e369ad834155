package ports

import (
	"context"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// EventBus defines the contract for publishing order lifecycle events.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error
	PublishOrderRefunded(ctx context.Context, order domain.Order, amountCents int64, reason string) error
}
