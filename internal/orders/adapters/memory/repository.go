package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// Repository provides an in-memory store useful for local development and tests.
type Repository struct {
	mu      sync.RWMutex
	orders  map[string]domain.Order
	history map[string][]domain.HistoryEntry
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		orders:  make(map[string]domain.Order),
		history: make(map[string][]domain.HistoryEntry),
	}
}

// Create stores a new order instance and its first history entry.
func (r *Repository) Create(_ context.Context, order domain.Order, entry domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = clone(order)
	r.history[order.ID] = append(r.history[order.ID], entry)
	return nil
}

// GetByID fetches a single order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	c := clone(order)
	return &c, nil
}

// List returns orders respecting the provided filter, newest first. Pagination is 1-based.
func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter = filter.Normalize()

	var result []domain.Order
	for _, order := range r.orders {
		if matches(order, filter) {
			result = append(result, order)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	total := len(result)
	start := filter.Offset()
	if start >= total {
		return []domain.Order{}, total, nil
	}

	end := start + filter.PageSize
	if end > total {
		end = total
	}

	page := make([]domain.Order, 0, end-start)
	for _, order := range result[start:end] {
		page = append(page, clone(order))
	}

	return page, total, nil
}

// Update applies mutate to a copy of the order and keeps it only on success.
func (r *Repository) Update(_ context.Context, id string, mutate ports.UpdateFunc) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	order := clone(current)
	entry, err := mutate(&order)
	if err != nil {
		return nil, err
	}

	r.orders[id] = clone(order)
	if entry != nil {
		r.history[id] = append(r.history[id], *entry)
	}
	return &order, nil
}

// History returns the status log of an order, newest first.
func (r *Repository) History(_ context.Context, orderID string) ([]domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, ports.ErrNotFound
	}
	log := r.history[orderID]
	entries := make([]domain.HistoryEntry, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		entries = append(entries, log[i])
	}
	return entries, nil
}

// ListStalePending returns pending orders created before the cutoff, oldest first.
func (r *Repository) ListStalePending(_ context.Context, before time.Time, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.orders {
		if order.Status == domain.StatusPending && order.CreatedAt.Before(before) {
			result = append(result, clone(order))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func matches(order domain.Order, filter ports.ListFilter) bool {
	if filter.UserID != "" && order.UserID != filter.UserID {
		return false
	}
	if filter.Status != nil && order.Status != *filter.Status {
		return false
	}
	if filter.PaymentStatus != nil && order.PaymentStatus != *filter.PaymentStatus {
		return false
	}
	if filter.CreatedFrom != nil && order.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && order.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

// clone copies everything a caller could mutate through the returned order.
func clone(order domain.Order) domain.Order {
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	for i := range order.Items {
		order.Items[i].Attributes = maps.Clone(order.Items[i].Attributes)
	}
	order.EstimatedDelivery = cloneTime(order.EstimatedDelivery)
	order.DeliveredAt = cloneTime(order.DeliveredAt)
	return order
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
