package queries

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type GetTrackingQuery struct {
	OrderID string
	UserID  string
}

// TrackingInfo is the shipment view of an order.
type TrackingInfo struct {
	OrderID           string                `json:"order_id"`
	Status            domain.OrderStatus    `json:"status"`
	TrackingNumber    string                `json:"tracking_number,omitempty"`
	TrackingURL       string                `json:"tracking_url,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time            `json:"delivered_at,omitempty"`
	History           []domain.HistoryEntry `json:"status_history"`
}

type GetTrackingQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetTrackingQueryHandler(repo ports.OrderRepository) *GetTrackingQueryHandler {
	return &GetTrackingQueryHandler{repo: repo}
}

func (h *GetTrackingQueryHandler) Handle(ctx context.Context, query GetTrackingQuery) (*TrackingInfo, error) {
	if err := requireOrderID(query.OrderID); err != nil {
		return nil, err
	}
	order, err := loadOwned(ctx, h.repo, query.OrderID, query.UserID)
	if err != nil {
		return nil, err
	}
	history, err := h.repo.History(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	return &TrackingInfo{
		OrderID:           order.ID,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		TrackingURL:       order.TrackingURL,
		EstimatedDelivery: order.EstimatedDelivery,
		DeliveredAt:       order.DeliveredAt,
		History:           history,
	}, nil
}
