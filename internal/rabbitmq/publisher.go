package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// ExchangeKind is the exchange type order events are routed through. Routing
// keys are event types, so bindings like "order.#" or "order.refunded" work.
const ExchangeKind = "topic"

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventBus publishes order lifecycle events to a topic exchange.
type EventBus struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewEventBus dials url and declares a durable topic exchange.
func NewEventBus(url, exchange string) (*EventBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &EventBus{conn: conn, ch: ch, exchange: exchange}, nil
}

func (b *EventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, domain.NewEvent(domain.EventOrderCreated, order))
}

func (b *EventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error {
	return b.publish(ctx, domain.StatusChangedEvent(order, previous, reason))
}

func (b *EventBus) PublishOrderRefunded(ctx context.Context, order domain.Order, amountCents int64, reason string) error {
	return b.publish(ctx, domain.RefundedEvent(order, amountCents, reason))
}

// Close closes the channel and the connection.
func (b *EventBus) Close() error {
	if err := b.ch.Close(); err != nil {
		return err
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *EventBus) publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	headers := amqp.Table{}
	telemetry.InjectContext(ctx, TableCarrier(headers))

	err = b.ch.PublishWithContext(ctx, b.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.OrderID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}
