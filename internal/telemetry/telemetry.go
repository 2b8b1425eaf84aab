// Package telemetry owns the process's OpenTelemetry tracer provider and
// the Prometheus metric vectors served on /metrics. Tracing is opt-in:
// with no endpoint configured the provider is never installed and every
// span the use-case layer starts is a no-op.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config controls the OTLP trace export.
type Config struct {
	// Enabled turns on trace export; Endpoint must be set when true.
	Enabled bool `koanf:"enabled"`
	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string `koanf:"endpoint"`
	// Insecure disables TLS on the exporter connection.
	Insecure bool `koanf:"insecure"`
	// SampleRate in [0,1]; 1 samples everything.
	SampleRate float64 `koanf:"sample_rate"`
}

// Telemetry holds the installed tracer provider for shutdown.
type Telemetry struct {
	tp *sdktrace.TracerProvider
}

// Init builds and installs the global tracer provider. With cfg.Enabled
// false it returns a Telemetry whose Shutdown is a no-op and installs
// nothing, so callers always get a valid handle.
func Init(ctx context.Context, cfg Config, serviceName, serviceVersion string) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("telemetry enabled but no endpoint configured")
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0 || cfg.SampleRate == 0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate < 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(tp)
	return &Telemetry{tp: tp}, nil
}

// Shutdown flushes and stops the tracer provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}
