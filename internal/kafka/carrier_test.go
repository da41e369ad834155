package kafka

import (
	"context"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	t.Run("set overwrites existing keys", func(t *testing.T) {
		c := HeaderCarrier{{Key: "traceparent", Value: []byte("old")}}
		c.Set("traceparent", "new")
		c.Set("tracestate", "x=1")

		if len(c) != 2 {
			t.Fatalf("expected 2 headers, got %d", len(c))
		}
		if got := c.Get("traceparent"); got != "new" {
			t.Errorf("traceparent = %q, want new", got)
		}
		if got := c.Get("missing"); got != "" {
			t.Errorf("missing header = %q, want empty", got)
		}
		if keys := c.Keys(); len(keys) != 2 || keys[0] != "traceparent" || keys[1] != "tracestate" {
			t.Errorf("unexpected keys %v", keys)
		}
	})

	t.Run("round trips trace context", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		prop := propagation.TraceContext{}
		var headers []kafkago.Header
		carrier := HeaderCarrier(headers)
		prop.Inject(ctx, &carrier)

		extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), &carrier))
		if extracted.TraceID() != traceID {
			t.Errorf("trace id = %s, want %s", extracted.TraceID(), traceID)
		}
		if !extracted.IsRemote() {
			t.Error("extracted span context should be remote")
		}
	})
}
