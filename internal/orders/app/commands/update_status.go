package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// UpdateOrderStatusCommand moves an order along its lifecycle. A target of
// refunded settles a full refund.
type UpdateOrderStatusCommand struct {
	OrderID string
	UserID  string
	Status  domain.OrderStatus
	Notes   string
	// ChangedBy overrides the actor recorded in history.
	ChangedBy string
}

func (c UpdateOrderStatusCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return domain.NewValidationError("order_id", "is required")
	}
	if !c.Status.Valid() {
		return domain.NewValidationError("status", fmt.Sprintf("unknown status %q", c.Status))
	}
	return nil
}

func (c UpdateOrderStatusCommand) Name() string { return "UpdateOrderStatusCommand" }

func (c UpdateOrderStatusCommand) LogAttrs() []any {
	return []any{"order_id", c.OrderID, "status", c.Status}
}

func (c UpdateOrderStatusCommand) record(ctx context.Context, m *metrics.Metrics, order *domain.Order, success bool, seconds float64) {
	m.RecordCommandDuration(ctx, c.Name(), success, seconds)
	if success {
		m.RecordStatusTransition(ctx, string(c.Status))
	}
	if c.Status == domain.StatusRefunded {
		var amount int64
		currency := ""
		if order != nil {
			amount, currency = order.RefundedAmountCents, order.Currency
		}
		m.RecordRefund(ctx, success, amount, currency)
	}
}

type UpdateOrderStatusCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventBus
}

func NewUpdateOrderStatusCommandHandler(repo ports.OrderRepository, events ports.EventBus) *UpdateOrderStatusCommandHandler {
	return &UpdateOrderStatusCommandHandler{repo: repo, events: events}
}

func (h *UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	changedBy := cmd.ChangedBy
	if changedBy == "" {
		changedBy = actor(cmd.UserID)
	}

	var previous domain.OrderStatus
	order, err := h.repo.Update(ctx, cmd.OrderID, ownedUpdate(cmd.UserID, func(o *domain.Order) (*domain.HistoryEntry, error) {
		previous = o.Status
		if err := o.TransitionTo(cmd.Status, now()); err != nil {
			return nil, err
		}

		notes := strings.TrimSpace(cmd.Notes)
		if notes == "" {
			notes = domain.StatusUpdatedNote(o.Status)
			if o.Status == domain.StatusRefunded {
				notes = domain.RefundNote(o.RefundedAmountCents, "")
			}
		}
		return newHistoryEntry(o, notes, changedBy), nil
	}))
	if err != nil {
		return nil, err
	}

	if order.Status == domain.StatusRefunded {
		err = h.events.PublishOrderRefunded(ctx, *order, order.RefundedAmountCents, cmd.Notes)
	} else {
		err = h.events.PublishOrderStatusChanged(ctx, *order, previous, strings.TrimSpace(cmd.Notes))
	}
	if err != nil {
		return order, fmt.Errorf("order saved but failed to publish event: %w", err)
	}

	return order, nil
}
