package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	ErrInvalidConfig         = errors.New("invalid telemetry configuration")
	ErrMissingServiceName    = errors.New("service name is required")
	ErrMissingServiceVersion = errors.New("service version is required")
	ErrInvalidSampleRate     = errors.New("sample rate must be between 0.0 and 1.0")
)

// Config describes how a storefront binary reports traces and metrics.
// An empty OTLPEndpoint keeps the SDK active but drops the exported data.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64
}

func (c *Config) Validate() error {
	var cause error
	switch {
	case c.ServiceName == "":
		cause = ErrMissingServiceName
	case c.ServiceVersion == "":
		cause = ErrMissingServiceVersion
	case c.SampleRate < 0 || c.SampleRate > 1:
		cause = ErrInvalidSampleRate
	default:
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, cause)
}

// Telemetry owns the global tracer and meter providers installed by Initialize.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	traceExporter  sdktrace.SpanExporter
	metricExporter sdkmetric.Exporter
}

type Option func(*options)

type options struct {
	traceExporter  sdktrace.SpanExporter
	metricExporter sdkmetric.Exporter
	registerer     prometheus.Registerer
}

func WithTraceExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) { o.traceExporter = exporter }
}

func WithMetricExporter(exporter sdkmetric.Exporter) Option {
	return func(o *options) { o.metricExporter = exporter }
}

// WithPrometheusRegisterer adds a pull reader that serves every OTel
// instrument through reg. Without an OTLP endpoint it is the only reader.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Initialize installs the global providers and the W3C trace context
// propagator used for broker message headers.
func Initialize(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tel := &Telemetry{}

	if cfg.EnableTracing {
		tel.traceExporter, err = newTraceExporter(ctx, cfg.OTLPEndpoint, o.traceExporter)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		tel.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(createSampler(cfg.SampleRate)),
			sdktrace.WithBatcher(tel.traceExporter),
		)
		otel.SetTracerProvider(tel.tracerProvider)
	}

	if cfg.EnableMetrics {
		readers, exporter, err := newMetricReaders(ctx, cfg.OTLPEndpoint, o.metricExporter, o.registerer)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}

		mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		for _, r := range readers {
			mpOpts = append(mpOpts, sdkmetric.WithReader(r))
		}
		tel.metricExporter = exporter
		tel.meterProvider = sdkmetric.NewMeterProvider(mpOpts...)
		otel.SetMeterProvider(tel.meterProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tel, nil
}

type shutdownFunc func(context.Context) error

// Shutdown flushes providers before their exporters and reports every failure.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var names []string
	var fns []shutdownFunc
	add := func(name string, fn shutdownFunc) {
		names = append(names, name)
		fns = append(fns, fn)
	}

	if t.tracerProvider != nil {
		add("tracer provider", t.tracerProvider.Shutdown)
	}
	if t.traceExporter != nil {
		add("trace exporter", t.traceExporter.Shutdown)
	}
	if t.meterProvider != nil {
		add("meter provider", t.meterProvider.Shutdown)
	}
	if t.metricExporter != nil {
		add("metric exporter", t.metricExporter.Shutdown)
	}

	var errs []error
	for i, fn := range fns {
		if err := fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telemetry) TracerProvider() *sdktrace.TracerProvider {
	return t.tracerProvider
}

func (t *Telemetry) MeterProvider() *sdkmetric.MeterProvider {
	return t.meterProvider
}
