package commands

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// SystemActor is recorded in history when no user triggered the change.
const SystemActor = "system"

// Command is implemented by every order lifecycle command.
type Command interface {
	// Name identifies the command in spans, logs and metrics.
	Name() string
	// LogAttrs returns the key/value pairs logged when the command starts.
	LogAttrs() []any
	record(ctx context.Context, m *metrics.Metrics, order *domain.Order, success bool, durationSeconds float64)
}

// Handler executes a command and returns the resulting order.
type Handler[C Command] interface {
	Handle(ctx context.Context, cmd C) (*domain.Order, error)
}

func actor(userID string) string {
	if userID == "" {
		return SystemActor
	}
	return userID
}

// ownedUpdate wraps mutate so callers outside the order's owner see ErrNotFound.
func ownedUpdate(userID string, mutate ports.UpdateFunc) ports.UpdateFunc {
	return func(order *domain.Order) (*domain.HistoryEntry, error) {
		if !order.OwnedBy(userID) {
			return nil, ports.ErrNotFound
		}
		return mutate(order)
	}
}

func newHistoryEntry(order *domain.Order, notes, changedBy string) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		ID:        newID(),
		OrderID:   order.ID,
		Status:    order.Status,
		Notes:     notes,
		ChangedBy: changedBy,
		CreatedAt: order.UpdatedAt,
	}
}

func now() time.Time {
	return time.Now().UTC()
}
