package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// UpdateOrderCommand changes an open order's payment, address, tracking or
// note fields. A Status different from the current one is applied through the
// lifecycle rules and logged in history.
type UpdateOrderCommand struct {
	OrderID string
	UserID  string
	Patch   domain.OrderPatch
	Status  *domain.OrderStatus
}

func (c UpdateOrderCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return domain.NewValidationError("order_id", "is required")
	}
	if c.Status != nil && !c.Status.Valid() {
		return domain.NewValidationError("status", fmt.Sprintf("unknown status %q", *c.Status))
	}
	if c.Patch.IsEmpty() && c.Status == nil {
		return domain.NewValidationError("body", "no fields to update")
	}
	return nil
}

func (c UpdateOrderCommand) Name() string { return "UpdateOrderCommand" }

func (c UpdateOrderCommand) LogAttrs() []any {
	return []any{"order_id", c.OrderID}
}

func (c UpdateOrderCommand) record(ctx context.Context, m *metrics.Metrics, order *domain.Order, success bool, seconds float64) {
	m.RecordCommandDuration(ctx, c.Name(), success, seconds)
	if success && c.Status != nil && order != nil && order.Status == *c.Status {
		m.RecordStatusTransition(ctx, string(order.Status))
	}
}

type UpdateOrderCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventBus
}

func NewUpdateOrderCommandHandler(repo ports.OrderRepository, events ports.EventBus) *UpdateOrderCommandHandler {
	return &UpdateOrderCommandHandler{repo: repo, events: events}
}

func (h *UpdateOrderCommandHandler) Handle(ctx context.Context, cmd UpdateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var previous domain.OrderStatus
	order, err := h.repo.Update(ctx, cmd.OrderID, ownedUpdate(cmd.UserID, func(o *domain.Order) (*domain.HistoryEntry, error) {
		previous = o.Status
		at := now()
		if o.IsTerminal() {
			return nil, domain.ErrOrderClosed
		}
		if !cmd.Patch.IsEmpty() {
			if err := o.ApplyUpdate(cmd.Patch, at); err != nil {
				return nil, err
			}
		}
		if cmd.Status == nil || *cmd.Status == o.Status {
			return nil, nil
		}
		if err := o.TransitionTo(*cmd.Status, at); err != nil {
			return nil, err
		}
		return newHistoryEntry(o, domain.StatusUpdatedNote(o.Status), actor(cmd.UserID)), nil
	}))
	if err != nil {
		return nil, err
	}

	if order.Status == previous {
		return order, nil
	}
	if order.Status == domain.StatusRefunded {
		err = h.events.PublishOrderRefunded(ctx, *order, order.RefundedAmountCents, "")
	} else {
		err = h.events.PublishOrderStatusChanged(ctx, *order, previous, "")
	}
	if err != nil {
		return order, fmt.Errorf("order saved but failed to publish event: %w", err)
	}
	return order, nil
}
