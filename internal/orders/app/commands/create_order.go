package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type CreateOrderCommand struct {
	UserID              string
	Items               []domain.OrderItem
	ShippingAddress     domain.Address
	BillingAddress      domain.Address
	PaymentMethod       string
	Currency            string
	ShippingAmountCents int64
	TaxAmountCents      int64
	DiscountAmountCents int64
	Notes               string
}

func (c CreateOrderCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	if len(c.Items) == 0 {
		return domain.NewValidationError("items", "at least one item is required")
	}
	return nil
}

func (c CreateOrderCommand) Name() string { return "CreateOrderCommand" }

func (c CreateOrderCommand) LogAttrs() []any {
	return []any{"user_id", c.UserID, "item_count", len(c.Items)}
}

func (c CreateOrderCommand) record(ctx context.Context, m *metrics.Metrics, _ *domain.Order, success bool, seconds float64) {
	m.RecordOrderCreationDuration(ctx, seconds)
	m.RecordOrderCreated(ctx, success)
}

type CreateOrderCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventBus
}

func NewCreateOrderCommandHandler(
	repo ports.OrderRepository,
	events ports.EventBus,
) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{
		repo:   repo,
		events: events,
	}
}

func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	copy(items, cmd.Items)

	totals, err := domain.ComputeTotals(items, cmd.ShippingAmountCents, cmd.TaxAmountCents, cmd.DiscountAmountCents)
	if err != nil {
		return nil, err
	}

	orderID := newID()
	for i := range items {
		items[i].ID = newID()
	}

	createdAt := now()
	order := domain.Order{
		ID:                  orderID,
		UserID:              cmd.UserID,
		Status:              domain.StatusPending,
		PaymentStatus:       domain.PaymentPending,
		SubtotalCents:       totals.SubtotalCents,
		ShippingAmountCents: totals.ShippingCents,
		TaxAmountCents:      totals.TaxCents,
		DiscountAmountCents: totals.DiscountCents,
		TotalAmountCents:    totals.TotalCents,
		Currency:            domain.NormalizeCurrency(cmd.Currency),
		ShippingAddress:     cmd.ShippingAddress,
		BillingAddress:      cmd.BillingAddress,
		PaymentMethod:       cmd.PaymentMethod,
		Notes:               cmd.Notes,
		Items:               items,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	entry := newHistoryEntry(&order, domain.NoteOrderCreated, cmd.UserID)
	if err := h.repo.Create(ctx, order, *entry); err != nil {
		return nil, err
	}

	if err := h.events.PublishOrderCreated(ctx, order); err != nil {
		return &order, fmt.Errorf("order saved but failed to publish event: %w", err)
	}

	return &order, nil
}

func newID() string {
	return uuid.NewString()
}
