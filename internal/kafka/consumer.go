package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// EventHandler processes a decoded order lifecycle event.
type EventHandler interface {
	HandleOrderEvent(ctx context.Context, event domain.Event) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads order events from a topic as part of a consumer group.
type Consumer struct {
	reader     messageReader
	topic      string
	handler    EventHandler
	logger     *slog.Logger
	metrics    *Metrics
	retryDelay time.Duration
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, topic, groupID string, handler EventHandler, logger *slog.Logger, metrics *Metrics) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return newConsumer(reader, topic, handler, logger, metrics)
}

func newConsumer(reader messageReader, topic string, handler EventHandler, logger *slog.Logger, metrics *Metrics) *Consumer {
	return &Consumer{
		reader:     reader,
		topic:      topic,
		handler:    handler,
		logger:     logger,
		metrics:    metrics,
		retryDelay: time.Second,
	}
}

// Run consumes until ctx is cancelled. Messages are committed after handling,
// including ones that failed to decode or handle, so a poison message cannot
// stall the partition.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "kafka consumer started", "topic", c.topic)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.InfoContext(ctx, "kafka consumer stopping", "topic", c.topic)
				return nil
			}
			c.logger.ErrorContext(ctx, "failed to fetch message", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "failed to commit message", "topic", c.topic, "offset", msg.Offset, "error", err)
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) process(parent context.Context, msg kafkago.Message) {
	headers := HeaderCarrier(msg.Headers)
	ctx, span := telemetry.StartConsumerSpan(parent, &headers, "OrderEventConsumer.Process")
	defer span.End()

	start := time.Now()
	err := c.handle(ctx, msg)
	c.metrics.RecordConsume(ctx, c.topic, time.Since(start).Seconds(), err == nil)

	telemetry.AddSpanAttributes(span,
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", c.topic),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
		attribute.String("event.type", headers.Get(EventTypeHeader)),
	)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		c.logger.ErrorContext(ctx, "failed to process order event",
			"topic", c.topic,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}
	telemetry.SetSpanSuccess(span)
}

func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) error {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}
	return c.handler.HandleOrderEvent(ctx, event)
}
