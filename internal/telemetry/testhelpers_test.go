package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testConfig() Config {
	return Config{
		ServiceName:    "storefront-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		SampleRate:     1.0,
	}
}

// setupTelemetry initializes telemetry with discarding exporters for the
// enabled signals.
func setupTelemetry(t *testing.T, tracing, metrics bool) (*Telemetry, func()) {
	t.Helper()

	cfg := testConfig()
	cfg.EnableTracing = tracing
	cfg.EnableMetrics = metrics

	tel, err := Initialize(context.Background(), cfg,
		WithTraceExporter(NewDiscardTraceExporter()),
		WithMetricExporter(NewDiscardMetricExporter()),
	)
	if err != nil {
		t.Fatalf("failed to initialize telemetry: %v", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	}
	return tel, cleanup
}

func setupTelemetryWithTracing(t *testing.T) (*Telemetry, func()) { return setupTelemetry(t, true, false) }
func setupTelemetryWithMetrics(t *testing.T) (*Telemetry, func()) { return setupTelemetry(t, false, true) }
func setupTelemetryWithBoth(t *testing.T) (*Telemetry, func())    { return setupTelemetry(t, true, true) }

// setupTracerProvider installs an in-memory tracer provider as the global one.
func setupTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exp))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	cleanup := func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	}
	return exp, cleanup
}

// usePropagator installs the W3C trace context propagator for the test.
func usePropagator(t *testing.T) {
	t.Helper()

	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })
}
