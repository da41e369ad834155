package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// BindAll matches every order event routing key.
const BindAll = "order.#"

// EventHandler processes a decoded order lifecycle event.
type EventHandler interface {
	HandleOrderEvent(ctx context.Context, event domain.Event) error
}

// Consumer delivers events from a durable queue bound to the order exchange.
type Consumer struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
	handler    EventHandler
	logger     *slog.Logger
}

// NewConsumer declares queue, binds it to exchange with bindingKey and starts
// consuming with manual acknowledgements.
func NewConsumer(url, exchange, queue, bindingKey string, handler EventHandler, logger *slog.Logger) (*Consumer, error) {
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

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}

	return &Consumer{
		conn:       conn,
		ch:         ch,
		queue:      q.Name,
		deliveries: deliveries,
		handler:    handler,
		logger:     logger,
	}, nil
}

// Run handles deliveries until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "rabbitmq consumer started", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-c.deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.process(ctx, d)
		}
	}
}

// Close closes the channel and the connection.
func (c *Consumer) Close() error {
	if err := c.ch.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

func (c *Consumer) process(parent context.Context, d amqp.Delivery) {
	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}
	ctx, span := telemetry.StartConsumerSpan(parent, TableCarrier(d.Headers), "OrderEventConsumer.Process")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", c.queue),
		attribute.String("event.type", d.RoutingKey),
	)

	if err := decodeAndHandle(ctx, c.handler, d.Body); err != nil {
		telemetry.RecordSpanError(span, err)
		c.logger.ErrorContext(ctx, "failed to process order event", "queue", c.queue, "routing_key", d.RoutingKey, "error", err)
		// redelivery would not fix a bad payload or a failed notification
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.ErrorContext(ctx, "failed to nack delivery", "error", nackErr)
		}
		return
	}

	telemetry.SetSpanSuccess(span)
	if err := d.Ack(false); err != nil {
		c.logger.ErrorContext(ctx, "failed to ack delivery", "error", err)
	}
}

func decodeAndHandle(ctx context.Context, handler EventHandler, body []byte) error {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}
	return handler.HandleOrderEvent(ctx, event)
}
