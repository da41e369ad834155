package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// Service sends customer notifications. Delivery is a structured log line;
// every sent notification is retained in the store.
type Service struct {
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store *Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Send delivers message to recipient.
func (s *Service) Send(ctx context.Context, recipient, message string) (Notification, error) {
	return s.send(ctx, Notification{Recipient: recipient, Message: message})
}

// List returns recently sent notifications, newest first.
func (s *Service) List(limit int) []Notification {
	return s.store.List(limit)
}

// HandleOrderEvent notifies the customer about an order lifecycle event.
// Events without a recipient are skipped.
func (s *Service) HandleOrderEvent(ctx context.Context, event domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "NotificationService.HandleOrderEvent")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", event.OrderID),
		attribute.String("event.type", string(event.Type)),
	)

	if event.Recipient == "" {
		s.logger.WarnContext(ctx, "skipping order event without recipient",
			"order_id", event.OrderID,
			"event_type", event.Type,
		)
		telemetry.AddSpanEvent(span, "skipped")
		return nil
	}

	_, err := s.send(ctx, Notification{
		Recipient: event.Recipient,
		Message:   MessageFor(event),
		OrderID:   event.OrderID,
		EventType: event.Type,
	})
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (s *Service) send(ctx context.Context, n Notification) (Notification, error) {
	if err := n.Validate(); err != nil {
		return Notification{}, err
	}
	n.ID = uuid.NewString()
	n.CreatedAt = s.now().UTC()

	s.store.Add(n)
	s.logger.InfoContext(ctx, "notification sent",
		"notification_id", n.ID,
		"recipient", n.Recipient,
		"order_id", n.OrderID,
		"message", n.Message,
	)
	return n, nil
}

// MessageFor renders the customer-facing text for an order event.
func MessageFor(event domain.Event) string {
	total := fmt.Sprintf("$%s %s", domain.FormatCents(event.TotalAmountCents), event.Currency)
	switch event.Type {
	case domain.EventOrderCreated:
		return fmt.Sprintf("Thanks for your order %s. Total: %s.", event.OrderID, total)
	case domain.EventOrderCancelled:
		if event.Reason != "" {
			return fmt.Sprintf("Your order %s was cancelled: %s.", event.OrderID, event.Reason)
		}
		return fmt.Sprintf("Your order %s was cancelled.", event.OrderID)
	case domain.EventOrderRefunded:
		return fmt.Sprintf("A refund of $%s %s for order %s has been processed.",
			domain.FormatCents(event.AmountCents), event.Currency, event.OrderID)
	default:
		return fmt.Sprintf("Your order %s is now %s.", event.OrderID, event.Status)
	}
}
