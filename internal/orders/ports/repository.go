package ports

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	// Create stores the order with its items and the initial history entry atomically.
	Create(ctx context.Context, order domain.Order, entry domain.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// List returns one page of orders matching filter and the total match count.
	List(ctx context.Context, filter ListFilter) ([]domain.Order, int, error)
	// Update loads the order under a lock, applies mutate and persists the result
	// together with the history entry mutate returns, if any. A mutate error
	// aborts the update and is returned unchanged.
	Update(ctx context.Context, id string, mutate UpdateFunc) (*domain.Order, error)
	// History returns the order's status log, newest first.
	History(ctx context.Context, orderID string) ([]domain.HistoryEntry, error)
	// ListStalePending returns up to limit pending orders created before the cutoff.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Order, error)
}

// UpdateFunc mutates an order in place and optionally returns the history
// entry describing the change.
type UpdateFunc func(order *domain.Order) (*domain.HistoryEntry, error)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListFilter narrows list queries by owner, status, creation window and pagination.
type ListFilter struct {
	UserID        string
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int
	PageSize      int
}

// Normalize clamps pagination to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset is the number of rows to skip for the filter's page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
)
