package domain

import "time"

// EventType names an order lifecycle event on the wire.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderRefunded      EventType = "order.refunded"
)

// Event is the envelope published for every order lifecycle change.
type Event struct {
	Type             EventType   `json:"type"`
	OrderID          string      `json:"order_id"`
	UserID           string      `json:"user_id"`
	Recipient        string      `json:"recipient,omitempty"`
	Status           OrderStatus `json:"status"`
	PreviousStatus   OrderStatus `json:"previous_status,omitempty"`
	TotalAmountCents int64       `json:"total_amount_cents"`
	AmountCents      int64       `json:"amount_cents,omitempty"`
	Currency         string      `json:"currency"`
	Reason           string      `json:"reason,omitempty"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

// NewEvent builds an event of the given type from the order's current state.
func NewEvent(eventType EventType, order Order) Event {
	return Event{
		Type:             eventType,
		OrderID:          order.ID,
		UserID:           order.UserID,
		Recipient:        order.BillingAddress.Email,
		Status:           order.Status,
		TotalAmountCents: order.TotalAmountCents,
		Currency:         order.Currency,
		OccurredAt:       order.UpdatedAt,
	}
}

// StatusChangedEvent describes a move from previous to the order's current
// status. Cancellations get their own event type. reason is the caller's
// note and may be empty.
func StatusChangedEvent(order Order, previous OrderStatus, reason string) Event {
	eventType := EventOrderStatusChanged
	if order.Status == StatusCancelled {
		eventType = EventOrderCancelled
	}
	event := NewEvent(eventType, order)
	event.PreviousStatus = previous
	event.Reason = reason
	return event
}

// RefundedEvent describes a processed refund.
func RefundedEvent(order Order, amountCents int64, reason string) Event {
	event := NewEvent(EventOrderRefunded, order)
	event.AmountCents = amountCents
	event.Reason = reason
	return event
}
