package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ordersCreatedTotal     metric.Int64Counter
	orderCreationDuration  metric.Float64Histogram
	commandDuration        metric.Float64Histogram
	statusTransitionsTotal metric.Int64Counter
	refundsTotal           metric.Int64Counter
	refundedAmountCents    metric.Int64Counter
	ordersExpiredTotal     metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersCreatedTotal, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderCreationDuration, err = meter.Float64Histogram(
		"order_creation_duration_seconds",
		metric.WithDescription("Duration of order creation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_creation_duration histogram: %w", err)
	}

	m.commandDuration, err = meter.Float64Histogram(
		"order_command_duration_seconds",
		metric.WithDescription("Duration of order lifecycle commands"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_command_duration histogram: %w", err)
	}

	m.statusTransitionsTotal, err = meter.Int64Counter(
		"order_status_transitions_total",
		metric.WithDescription("Order status transitions by target status"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_status_transitions_total counter: %w", err)
	}

	m.refundsTotal, err = meter.Int64Counter(
		"order_refunds_total",
		metric.WithDescription("Total number of refund attempts"),
		metric.WithUnit("{refund}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_refunds_total counter: %w", err)
	}

	m.refundedAmountCents, err = meter.Int64Counter(
		"order_refunded_amount_cents_total",
		metric.WithDescription("Sum of refunded amounts in minor currency units"),
		metric.WithUnit("{cent}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_refunded_amount_cents_total counter: %w", err)
	}

	m.ordersExpiredTotal, err = meter.Int64Counter(
		"orders_expired_total",
		metric.WithDescription("Pending orders cancelled by the expiry job"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_expired_total counter: %w", err)
	}

	return m, nil
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, success bool) {
	m.ordersCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", result(success)),
	))
}

func (m *Metrics) RecordOrderCreationDuration(ctx context.Context, durationSeconds float64) {
	m.orderCreationDuration.Record(ctx, durationSeconds)
}

// RecordCommandDuration records how long a named lifecycle command took.
func (m *Metrics) RecordCommandDuration(ctx context.Context, command string, success bool, durationSeconds float64) {
	m.commandDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", result(success)),
	))
}

func (m *Metrics) RecordStatusTransition(ctx context.Context, to string) {
	m.statusTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", to),
	))
}

// RecordRefund counts a refund attempt and, when it succeeded, the refunded amount.
func (m *Metrics) RecordRefund(ctx context.Context, success bool, amountCents int64, currency string) {
	m.refundsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", result(success)),
	))
	if success && amountCents > 0 {
		m.refundedAmountCents.Add(ctx, amountCents, metric.WithAttributes(
			attribute.String("currency", currency),
		))
	}
}

func (m *Metrics) RecordOrdersExpired(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.ordersExpiredTotal.Add(ctx, int64(count))
}
