package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// PublishRecorder records broker publish latency. Implemented by the kafka and
// rabbitmq metrics.
type PublishRecorder interface {
	RecordPublish(ctx context.Context, destination string, durationSeconds float64, success bool)
}

// ObservableEventBus wraps an EventBus with spans and publish metrics.
type ObservableEventBus struct {
	bus     ports.EventBus
	metrics PublishRecorder
}

func NewObservableEventBus(bus ports.EventBus, metrics PublishRecorder) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, "EventBus.PublishOrderCreated", domain.EventOrderCreated, order,
		func(ctx context.Context) error {
			return e.bus.PublishOrderCreated(ctx, order)
		})
}

func (e *ObservableEventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error {
	eventType := domain.StatusChangedEvent(order, previous, reason).Type
	return e.observe(ctx, "EventBus.PublishOrderStatusChanged", eventType, order,
		func(ctx context.Context) error {
			return e.bus.PublishOrderStatusChanged(ctx, order, previous, reason)
		},
		attribute.String("order.previous_status", string(previous)),
	)
}

func (e *ObservableEventBus) PublishOrderRefunded(ctx context.Context, order domain.Order, amountCents int64, reason string) error {
	return e.observe(ctx, "EventBus.PublishOrderRefunded", domain.EventOrderRefunded, order,
		func(ctx context.Context) error {
			return e.bus.PublishOrderRefunded(ctx, order, amountCents, reason)
		},
		attribute.Int64("refund.amount_cents", amountCents),
		attribute.String("refund.reason", reason),
	)
}

func (e *ObservableEventBus) observe(
	ctx context.Context,
	spanName string,
	eventType domain.EventType,
	order domain.Order,
	publish func(context.Context) error,
	extra ...attribute.KeyValue,
) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	attrs := append([]attribute.KeyValue{
		attribute.String("order.id", order.ID),
		attribute.String("order.status", string(order.Status)),
		attribute.String("event.type", string(eventType)),
	}, extra...)
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	err := publish(ctx)
	e.metrics.RecordPublish(ctx, string(eventType), time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
