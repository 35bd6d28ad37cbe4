package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig controls the process-wide tracer provider that backs
// StartSpan/EndSpan.
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64 // 0.0..1.0, ignored when Enabled is false
}

// InstallTracerProvider builds and installs the process-wide SDK tracer
// provider StartSpan's package-level tracer draws from. When cfg.Enabled is
// false it installs the SDK's default no-op-equivalent provider (spans are
// created but never exported), matching pkg/observability/tracing.go's
// disabled-tracing branch. No span exporter is registered here: this
// process only needs in-process span timing for StartSpan/EndSpan, not a
// shipped trace backend, so WithBatcher is never called and no exporter
// dependency is introduced.
func InstallTracerProvider(cfg TracingConfig) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		provider := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(provider)
		return provider.Shutdown, nil
	}

	res, err := sdkresource.New(context.Background(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: build trace resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SamplingRate < 1:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
