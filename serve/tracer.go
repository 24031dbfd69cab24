package serve

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const serviceName = "compliance-oracle-sdk"

// NewTracerProvider creates a TracerProvider that exports completed spans
// through the given exporter. Spans are exported in batches; call Shutdown
// on the returned provider to flush them before exit.
//
// If logger is nil, slog.Default() is used.
func NewTracerProvider(exporter sdktrace.SpanExporter, logger *slog.Logger) *sdktrace.TracerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(opts...)
}

// InstallTracerProvider builds a provider and installs it as the global
// otel tracer provider, so registries and stores created afterwards pick it
// up. The returned shutdown function flushes and stops the provider.
func InstallTracerProvider(exporter sdktrace.SpanExporter, logger *slog.Logger) func(context.Context) error {
	tp := NewTracerProvider(exporter, logger)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
