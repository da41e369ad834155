package notifications

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// ErrInvalidNotification is returned when a notification lacks a recipient or message.
var ErrInvalidNotification = errors.New("invalid notification")

// Notification is a message delivered to a customer.
type Notification struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	Message   string           `json:"message"`
	OrderID   string           `json:"order_id,omitempty"`
	EventType domain.EventType `json:"event_type,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.Recipient) == "" {
		return errors.Join(ErrInvalidNotification, errors.New("recipient is required"))
	}
	if strings.TrimSpace(n.Message) == "" {
		return errors.Join(ErrInvalidNotification, errors.New("message is required"))
	}
	return nil
}

// Store keeps the most recent notifications in memory, dropping the oldest
// once capacity is reached.
type Store struct {
	mu       sync.RWMutex
	capacity int
	items    []Notification
}

// NewStore creates a store holding at most capacity notifications.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{capacity: capacity}
}

func (s *Store) Add(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	if over := len(s.items) - s.capacity; over > 0 {
		s.items = append([]Notification(nil), s.items[over:]...)
	}
}

// List returns up to limit notifications, newest first. A non-positive limit
// returns everything retained.
func (s *Store) List(limit int) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.items) {
		limit = len(s.items)
	}
	out := make([]Notification, 0, limit)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.items[i])
	}
	return out
}
