package queries

import (
	"context"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type GetStatusHistoryQuery struct {
	OrderID string
	UserID  string
}

// GetStatusHistoryQueryHandler returns an order's status log, newest first.
type GetStatusHistoryQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetStatusHistoryQueryHandler(repo ports.OrderRepository) *GetStatusHistoryQueryHandler {
	return &GetStatusHistoryQueryHandler{repo: repo}
}

func (h *GetStatusHistoryQueryHandler) Handle(ctx context.Context, query GetStatusHistoryQuery) ([]domain.HistoryEntry, error) {
	if err := requireOrderID(query.OrderID); err != nil {
		return nil, err
	}
	if _, err := loadOwned(ctx, h.repo, query.OrderID, query.UserID); err != nil {
		return nil, err
	}
	return h.repo.History(ctx, query.OrderID)
}
