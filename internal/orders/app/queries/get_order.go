package queries

import (
	"context"
	"strings"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// GetOrderQuery represents a request to retrieve an order by its ID.
// A non-empty UserID restricts the lookup to that user's orders.
type GetOrderQuery struct {
	OrderID string
	UserID  string
}

// GetOrderQueryHandler executes GetOrderQuery and returns the order if found.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

// NewGetOrderQueryHandler constructs a GetOrderQueryHandler.
func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

// Handle executes the query and retrieves the order.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return loadOwned(ctx, h.repo, query.OrderID, query.UserID)
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	return requireOrderID(q.OrderID)
}

func requireOrderID(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError("order_id", "is required")
	}
	return nil
}

// loadOwned fetches an order, reporting other users' orders as not found.
func loadOwned(ctx context.Context, repo ports.OrderRepository, orderID, userID string) (*domain.Order, error) {
	order, err := repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, ports.ErrNotFound
	}
	return order, nil
}
