package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
}

// newTraceExporter prefers an injected exporter, then the collector, and
// falls back to discarding so spans still carry IDs into logs and headers.
func newTraceExporter(ctx context.Context, endpoint string, injected sdktrace.SpanExporter) (sdktrace.SpanExporter, error) {
	if injected != nil {
		return injected, nil
	}
	if endpoint == "" {
		return NewDiscardTraceExporter(), nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return exporter, nil
}

// newMetricReaders returns the readers for the meter provider and the push
// exporter behind the periodic reader, if any.
func newMetricReaders(
	ctx context.Context,
	endpoint string,
	injected sdkmetric.Exporter,
	registerer prometheus.Registerer,
) ([]sdkmetric.Reader, sdkmetric.Exporter, error) {
	var readers []sdkmetric.Reader

	if registerer != nil {
		pull, err := otelprom.New(otelprom.WithRegisterer(registerer))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		readers = append(readers, pull)
	}

	exporter := injected
	switch {
	case exporter != nil:
	case endpoint != "":
		otlp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}
		exporter = otlp
	case len(readers) == 0:
		exporter = NewDiscardMetricExporter()
	}

	if exporter != nil {
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter))
	}
	return readers, exporter, nil
}

// createSampler maps a sample rate to a sampler. Fractional rates follow the
// parent's sampling decision.
func createSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}
