package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type GetInvoiceQuery struct {
	OrderID string
	UserID  string
}

// Invoice is a rendered invoice document ready to be served as a download.
type Invoice struct {
	OrderID     string
	Filename    string
	ContentType string
	Body        []byte
}

type GetInvoiceQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetInvoiceQueryHandler(repo ports.OrderRepository) *GetInvoiceQueryHandler {
	return &GetInvoiceQueryHandler{repo: repo}
}

func (h *GetInvoiceQueryHandler) Handle(ctx context.Context, query GetInvoiceQuery) (*Invoice, error) {
	if err := requireOrderID(query.OrderID); err != nil {
		return nil, err
	}
	order, err := loadOwned(ctx, h.repo, query.OrderID, query.UserID)
	if err != nil {
		return nil, err
	}

	body, err := domain.RenderInvoice(*order)
	if err != nil {
		return nil, err
	}

	return &Invoice{
		OrderID:     order.ID,
		Filename:    fmt.Sprintf("invoice-%s.txt", order.ID),
		ContentType: "text/plain; charset=utf-8",
		Body:        body,
	}, nil
}
