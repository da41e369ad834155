package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// EventTypeHeader names the header carrying the event type, letting consumers
// filter without decoding the payload.
const EventTypeHeader = "event-type"

// messageWriter is the subset of *kafkago.Writer the event bus needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventBus publishes order lifecycle events to a single Kafka topic, keyed by
// order ID so events of one order stay ordered within a partition.
type EventBus struct {
	writer messageWriter
	topic  string
}

// NewEventBus creates a producer writing to topic on brokers.
func NewEventBus(brokers []string, topic string) *EventBus {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &EventBus{writer: writer, topic: topic}
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

// Topic returns the topic events are written to.
func (b *EventBus) Topic() string {
	return b.topic
}

// Close flushes pending writes and releases the writer.
func (b *EventBus) Close() error {
	return b.writer.Close()
}

func (b *EventBus) publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	headers := HeaderCarrier{{Key: EventTypeHeader, Value: []byte(event.Type)}}
	telemetry.InjectContext(ctx, &headers)

	msg := kafkago.Message{
		Key:     []byte(event.OrderID),
		Value:   payload,
		Headers: headers,
		Time:    event.OccurredAt,
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	return nil
}
