package kafka

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	producerLatency  metric.Float64Histogram
	consumerLatency  metric.Float64Histogram
	messagesConsumed metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.producerLatency, err = meter.Float64Histogram(
		"kafka_producer_latency_seconds",
		metric.WithDescription("Kafka producer latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka_producer_latency histogram: %w", err)
	}

	m.consumerLatency, err = meter.Float64Histogram(
		"kafka_consumer_latency_seconds",
		metric.WithDescription("Time spent handling a consumed message"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka_consumer_latency histogram: %w", err)
	}

	m.messagesConsumed, err = meter.Int64Counter(
		"kafka_messages_consumed_total",
		metric.WithDescription("Messages consumed by outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka_messages_consumed_total counter: %w", err)
	}

	return m, nil
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordPublish(ctx context.Context, topic string, durationSeconds float64, success bool) {
	m.producerLatency.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("status", status(success)),
	))
}

func (m *Metrics) RecordConsume(ctx context.Context, topic string, durationSeconds float64, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("status", status(success)),
	)
	m.consumerLatency.Record(ctx, durationSeconds, attrs)
	m.messagesConsumed.Add(ctx, 1, attrs)
}
