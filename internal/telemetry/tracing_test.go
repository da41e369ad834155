package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestStartSpan(t *testing.T) {
	exp, cleanup := setupTracerProvider(t)
	defer cleanup()

	ctx, parent := StartSpan(context.Background(), "OrderService.CreateOrder")
	_, child := StartSpan(ctx, "OrderRepository.Create")
	child.End()
	parent.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "OrderRepository.Create" || spans[1].Name != "OrderService.CreateOrder" {
		t.Errorf("unexpected span names %q, %q", spans[0].Name, spans[1].Name)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("expected repository span to be a child of the service span")
	}
}

func TestSpanHelpers(t *testing.T) {
	t.Run("attributes and events are recorded", func(t *testing.T) {
		exp, cleanup := setupTracerProvider(t)
		defer cleanup()

		_, span := StartSpan(context.Background(), "op")
		AddSpanAttributes(span, attribute.String("order.id", "o-1"), attribute.Int64("order.total_cents", 4200))
		AddSpanEvent(span, "skipped", attribute.String("reason", "no recipient"))
		span.End()

		got := exp.GetSpans()[0]
		attrs := map[attribute.Key]attribute.Value{}
		for _, kv := range got.Attributes {
			attrs[kv.Key] = kv.Value
		}
		if attrs["order.id"].AsString() != "o-1" || attrs["order.total_cents"].AsInt64() != 4200 {
			t.Errorf("unexpected attributes %v", got.Attributes)
		}
		if len(got.Events) != 1 || got.Events[0].Name != "skipped" {
			t.Errorf("expected one skipped event, got %v", got.Events)
		}
	})

	t.Run("error then success leaves status ok", func(t *testing.T) {
		exp, cleanup := setupTracerProvider(t)
		defer cleanup()

		_, span := StartSpan(context.Background(), "op")
		RecordSpanError(span, errors.New("publish failed"))
		SetSpanSuccess(span)
		span.End()

		got := exp.GetSpans()[0]
		if got.Status.Code != codes.Ok {
			t.Errorf("expected Ok status, got %v", got.Status.Code)
		}
		if len(got.Events) != 1 || got.Events[0].Name != "exception" {
			t.Errorf("expected recorded exception event, got %v", got.Events)
		}
	})

	t.Run("error sets error status", func(t *testing.T) {
		exp, cleanup := setupTracerProvider(t)
		defer cleanup()

		_, span := StartSpan(context.Background(), "op")
		RecordSpanError(span, errors.New("order not found"))
		RecordSpanError(span, nil)
		span.End()

		got := exp.GetSpans()[0]
		if got.Status.Code != codes.Error || got.Status.Description != "order not found" {
			t.Errorf("unexpected status %+v", got.Status)
		}
	})

	t.Run("nil span is ignored", func(t *testing.T) {
		AddSpanAttributes(nil, attribute.String("k", "v"))
		AddSpanEvent(nil, "event")
		RecordSpanError(nil, errors.New("boom"))
		SetSpanSuccess(nil)
	})
}

func TestTraceAndSpanID(t *testing.T) {
	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("expected empty IDs without a span")
	}

	_, cleanup := setupTracerProvider(t)
	defer cleanup()

	ctx, parent := StartSpan(context.Background(), "parent")
	defer parent.End()
	childCtx, child := StartSpan(ctx, "child")
	defer child.End()

	if TraceID(ctx) != parent.SpanContext().TraceID().String() {
		t.Error("trace ID does not match the span in context")
	}
	if TraceID(childCtx) != TraceID(ctx) {
		t.Error("expected nested spans to share the trace ID")
	}
	if SpanID(childCtx) == SpanID(ctx) {
		t.Error("expected nested spans to have distinct span IDs")
	}
}

func TestMessagePropagation(t *testing.T) {
	exp, cleanup := setupTracerProvider(t)
	defer cleanup()
	usePropagator(t)

	producerCtx, producer := StartSpan(context.Background(), "EventBus.PublishOrderCreated")
	carrier := propagation.MapCarrier{}
	InjectContext(producerCtx, carrier)
	producer.End()

	if carrier.Get("traceparent") == "" {
		t.Fatal("expected traceparent to be injected")
	}

	consumerCtx, consumer := StartConsumerSpan(context.Background(), carrier, "OrderEventConsumer.Process")
	consumer.End()

	if TraceID(consumerCtx) != producer.SpanContext().TraceID().String() {
		t.Error("expected consumer span to continue the producer trace")
	}

	spans := exp.GetSpans()
	got := spans[len(spans)-1]
	if got.SpanKind != trace.SpanKindConsumer {
		t.Errorf("expected consumer span kind, got %v", got.SpanKind)
	}
	if got.Parent.SpanID() != producer.SpanContext().SpanID() {
		t.Error("expected consumer span parent to be the producer span")
	}
}

func TestStartConsumerSpanWithoutTraceContext(t *testing.T) {
	_, cleanup := setupTracerProvider(t)
	defer cleanup()
	usePropagator(t)

	ctx, span := StartConsumerSpan(context.Background(), propagation.MapCarrier{}, "OrderEventConsumer.Process")
	defer span.End()

	if TraceID(ctx) == "" {
		t.Error("expected a new root trace when the message carries none")
	}
}
