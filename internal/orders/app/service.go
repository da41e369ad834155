package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/app/queries"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// Service bundles use cases for handling orders via the API.
type Service struct {
	idemStore ports.IdempotencyStore

	createOrder  commands.Handler[commands.CreateOrderCommand]
	updateStatus commands.Handler[commands.UpdateOrderStatusCommand]
	cancelOrder  commands.Handler[commands.CancelOrderCommand]
	refundOrder  commands.Handler[commands.RefundOrderCommand]
	updateOrder  commands.Handler[commands.UpdateOrderCommand]

	getOrder      *queries.GetOrderQueryHandler
	listOrders    *queries.ListOrdersQueryHandler
	statusHistory *queries.GetStatusHistoryQueryHandler
	tracking      *queries.GetTrackingQueryHandler
	invoice       *queries.GetInvoiceQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	events ports.EventBus,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		idemStore: idem,

		createOrder: commands.NewObservableHandler[commands.CreateOrderCommand](
			commands.NewCreateOrderCommandHandler(repo, events), logger, metrics),
		updateStatus: commands.NewObservableHandler[commands.UpdateOrderStatusCommand](
			commands.NewUpdateOrderStatusCommandHandler(repo, events), logger, metrics),
		cancelOrder: commands.NewObservableHandler[commands.CancelOrderCommand](
			commands.NewCancelOrderCommandHandler(repo, events), logger, metrics),
		refundOrder: commands.NewObservableHandler[commands.RefundOrderCommand](
			commands.NewRefundOrderCommandHandler(repo, events), logger, metrics),
		updateOrder: commands.NewObservableHandler[commands.UpdateOrderCommand](
			commands.NewUpdateOrderCommandHandler(repo, events), logger, metrics),

		getOrder:      queries.NewGetOrderQueryHandler(repo),
		listOrders:    queries.NewListOrdersQueryHandler(repo),
		statusHistory: queries.NewGetStatusHistoryQueryHandler(repo),
		tracking:      queries.NewGetTrackingQueryHandler(repo),
		invoice:       queries.NewGetInvoiceQueryHandler(repo),
	}
}

// CreateOrderInput captures payload for creating an order.
type CreateOrderInput struct {
	Items               []domain.OrderItem `json:"items"`
	ShippingAddress     domain.Address     `json:"shipping_address"`
	BillingAddress      domain.Address     `json:"billing_address"`
	PaymentMethod       string             `json:"payment_method"`
	Currency            string             `json:"currency"`
	ShippingAmountCents int64              `json:"shipping_amount_cents"`
	TaxAmountCents      int64              `json:"tax_amount_cents"`
	DiscountAmountCents int64              `json:"discount_amount_cents"`
	Notes               string             `json:"notes"`
}

// CreateOrder orchestrates order creation and event emission for userID.
func (s *Service) CreateOrder(ctx context.Context, userID string, input CreateOrderInput) (*domain.Order, error) {
	return s.createOrder.Handle(ctx, commands.CreateOrderCommand{
		UserID:              userID,
		Items:               input.Items,
		ShippingAddress:     input.ShippingAddress,
		BillingAddress:      input.BillingAddress,
		PaymentMethod:       input.PaymentMethod,
		Currency:            input.Currency,
		ShippingAmountCents: input.ShippingAmountCents,
		TaxAmountCents:      input.TaxAmountCents,
		DiscountAmountCents: input.DiscountAmountCents,
		Notes:               input.Notes,
	})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: id, UserID: userID})
}

// ListOrders returns one page of orders using a filter.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) (*queries.ListOrdersResult, error) {
	return s.listOrders.Handle(ctx, queries.ListOrdersQuery{Filter: filter})
}

// StatusUpdate is a requested status change with optional history details.
type StatusUpdate struct {
	Status    domain.OrderStatus `json:"status"`
	Notes     string             `json:"notes"`
	ChangedBy string             `json:"changed_by"`
}

// UpdateOrderStatus moves an order along its lifecycle, recording the change in history.
func (s *Service) UpdateOrderStatus(ctx context.Context, userID, id string, update StatusUpdate) (*domain.Order, error) {
	return s.updateStatus.Handle(ctx, commands.UpdateOrderStatusCommand{
		OrderID:   id,
		UserID:    userID,
		Status:    update.Status,
		Notes:     update.Notes,
		ChangedBy: update.ChangedBy,
	})
}

// UpdateOrder patches the mutable fields of an open order and, when status is
// set, moves it through the lifecycle.
func (s *Service) UpdateOrder(ctx context.Context, userID, id string, patch domain.OrderPatch, status *domain.OrderStatus) (*domain.Order, error) {
	return s.updateOrder.Handle(ctx, commands.UpdateOrderCommand{OrderID: id, UserID: userID, Patch: patch, Status: status})
}

// CancelOrder cancels an order that has not shipped yet.
func (s *Service) CancelOrder(ctx context.Context, userID, id, reason string) (*domain.Order, error) {
	return s.cancelOrder.Handle(ctx, commands.CancelOrderCommand{OrderID: id, UserID: userID, Reason: reason})
}

// RefundOrder refunds amountCents of a paid order; zero refunds the full total.
func (s *Service) RefundOrder(ctx context.Context, userID, id string, amountCents int64, reason string) (*domain.Order, error) {
	return s.refundOrder.Handle(ctx, commands.RefundOrderCommand{
		OrderID:     id,
		UserID:      userID,
		AmountCents: amountCents,
		Reason:      reason,
	})
}

// StatusHistory returns the status log of an order.
func (s *Service) StatusHistory(ctx context.Context, userID, id string) ([]domain.HistoryEntry, error) {
	return s.statusHistory.Handle(ctx, queries.GetStatusHistoryQuery{OrderID: id, UserID: userID})
}

// Tracking returns shipment details of an order.
func (s *Service) Tracking(ctx context.Context, userID, id string) (*queries.TrackingInfo, error) {
	return s.tracking.Handle(ctx, queries.GetTrackingQuery{OrderID: id, UserID: userID})
}

// Invoice renders the invoice of an order.
func (s *Service) Invoice(ctx context.Context, userID, id string) (*queries.Invoice, error) {
	return s.invoice.Handle(ctx, queries.GetInvoiceQuery{OrderID: id, UserID: userID})
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
