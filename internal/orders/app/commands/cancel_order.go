package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type CancelOrderCommand struct {
	OrderID string
	UserID  string
	// Reason replaces the default history note when set.
	Reason string
	// ChangedBy overrides the actor recorded in history, e.g. for scheduled jobs.
	ChangedBy string
}

func (c CancelOrderCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return domain.NewValidationError("order_id", "is required")
	}
	return nil
}

func (c CancelOrderCommand) Name() string { return "CancelOrderCommand" }

func (c CancelOrderCommand) LogAttrs() []any {
	return []any{"order_id", c.OrderID, "reason", c.Reason}
}

func (c CancelOrderCommand) record(ctx context.Context, m *metrics.Metrics, _ *domain.Order, success bool, seconds float64) {
	m.RecordCommandDuration(ctx, c.Name(), success, seconds)
	if success {
		m.RecordStatusTransition(ctx, string(domain.StatusCancelled))
	}
}

type CancelOrderCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventBus
}

func NewCancelOrderCommandHandler(repo ports.OrderRepository, events ports.EventBus) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{repo: repo, events: events}
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	changedBy := cmd.ChangedBy
	if changedBy == "" {
		changedBy = actor(cmd.UserID)
	}

	var previous domain.OrderStatus
	var reason string
	order, err := h.repo.Update(ctx, cmd.OrderID, ownedUpdate(cmd.UserID, func(o *domain.Order) (*domain.HistoryEntry, error) {
		previous = o.Status
		if err := o.Cancel(now()); err != nil {
			return nil, err
		}

		reason = strings.TrimSpace(cmd.Reason)
		if reason == "" {
			reason = domain.NoteOrderCancelled
		}
		return newHistoryEntry(o, reason, changedBy), nil
	}))
	if err != nil {
		return nil, err
	}

	if err := h.events.PublishOrderStatusChanged(ctx, *order, previous, reason); err != nil {
		return order, fmt.Errorf("order saved but failed to publish event: %w", err)
	}

	return order, nil
}
