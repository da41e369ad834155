package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// RefundOrderCommand refunds a paid order. Zero AmountCents refunds the full total.
type RefundOrderCommand struct {
	OrderID     string
	UserID      string
	AmountCents int64
	Reason      string
}

func (c RefundOrderCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return domain.NewValidationError("order_id", "is required")
	}
	if c.AmountCents < 0 {
		return domain.NewValidationError("amount_cents", "must not be negative")
	}
	return nil
}

func (c RefundOrderCommand) Name() string { return "RefundOrderCommand" }

func (c RefundOrderCommand) LogAttrs() []any {
	return []any{"order_id", c.OrderID, "amount_cents", c.AmountCents, "reason", c.Reason}
}

func (c RefundOrderCommand) record(ctx context.Context, m *metrics.Metrics, order *domain.Order, success bool, seconds float64) {
	m.RecordCommandDuration(ctx, c.Name(), success, seconds)
	var amount int64
	currency := ""
	if order != nil {
		amount, currency = order.RefundedAmountCents, order.Currency
	}
	m.RecordRefund(ctx, success, amount, currency)
	if success {
		m.RecordStatusTransition(ctx, string(domain.StatusRefunded))
	}
}

type RefundOrderCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventBus
}

func NewRefundOrderCommandHandler(repo ports.OrderRepository, events ports.EventBus) *RefundOrderCommandHandler {
	return &RefundOrderCommandHandler{repo: repo, events: events}
}

func (h *RefundOrderCommandHandler) Handle(ctx context.Context, cmd RefundOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var refunded int64
	order, err := h.repo.Update(ctx, cmd.OrderID, ownedUpdate(cmd.UserID, func(o *domain.Order) (*domain.HistoryEntry, error) {
		amount, err := o.Refund(cmd.AmountCents, now())
		if err != nil {
			return nil, err
		}
		refunded = amount
		return newHistoryEntry(o, domain.RefundNote(amount, strings.TrimSpace(cmd.Reason)), actor(cmd.UserID)), nil
	}))
	if err != nil {
		return nil, err
	}

	if err := h.events.PublishOrderRefunded(ctx, *order, refunded, cmd.Reason); err != nil {
		return order, fmt.Errorf("order saved but failed to publish event: %w", err)
	}

	return order, nil
}
