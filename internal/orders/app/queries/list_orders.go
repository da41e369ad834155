package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// ListOrdersQuery pages through orders matching Filter.
type ListOrdersQuery struct {
	Filter ports.ListFilter
}

// ListOrdersResult is one page of orders with pagination metadata.
type ListOrdersResult struct {
	Orders     []domain.Order `json:"orders"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) (*ListOrdersResult, error) {
	filter := query.Filter.Normalize()
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	if filter.PaymentStatus != nil && !filter.PaymentStatus.Valid() {
		return nil, domain.NewValidationError("payment_status", fmt.Sprintf("unknown payment status %q", *filter.PaymentStatus))
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}

	orders, total, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListOrdersResult{
		Orders:     orders,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: (total + filter.PageSize - 1) / filter.PageSize,
	}, nil
}
