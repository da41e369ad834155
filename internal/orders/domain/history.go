package domain

import (
	"fmt"
	"time"
)

// HistoryEntry is one row of an order's status audit log.
type HistoryEntry struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Notes     string      `json:"notes,omitempty"`
	ChangedBy string      `json:"changed_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

const (
	NoteOrderCreated   = "Order created"
	NoteOrderCancelled = "Order cancelled"
)

// StatusUpdatedNote is the default history note for a status change.
func StatusUpdatedNote(status OrderStatus) string {
	return fmt.Sprintf("Order status updated to %s", status)
}

// RefundNote is the history note recorded for a processed refund.
func RefundNote(amountCents int64, reason string) string {
	if reason == "" {
		reason = "N/A"
	}
	return fmt.Sprintf("Refund processed: $%s. Reason: %s", FormatCents(amountCents), reason)
}
