package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	sdk "github.com/compliance-oracle/sdk"
)

const instrumentationName = "github.com/compliance-oracle/sdk/tool"

// Registry holds the registered tools and instruments every invocation with
// a trace span, invocation counters, and structured logs. Each invocation is
// tagged with a unique id so logs and spans can be correlated.
type Registry struct {
	logger *slog.Logger
	tracer trace.Tracer

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram

	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry. If logger is nil,
// slog.Default() is used. Instruments come from the global otel providers,
// so the registry works uninstrumented when none are configured.
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(instrumentationName)

	invocations, err := meter.Int64Counter("tool.invocations",
		metric.WithDescription("Total tool invocations"))
	if err != nil {
		return nil, fmt.Errorf("creating invocation counter: %w", err)
	}
	failures, err := meter.Int64Counter("tool.failures",
		metric.WithDescription("Failed tool invocations"))
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}
	duration, err := meter.Float64Histogram("tool.duration",
		metric.WithDescription("Tool execution duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &Registry{
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		invocations: invocations,
		failures:    failures,
		duration:    duration,
		tools:       make(map[string]Tool),
	}, nil
}

// Register adds a tool. Registering a duplicate name is a configuration
// error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return sdk.NewConfigurationError("tool.Register",
			fmt.Errorf("tool %q is already registered", t.Name()))
	}
	r.tools[t.Name()] = t

	r.logger.Debug("tool registered", "tool", t.Name(), "version", t.Version())
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns every tool's descriptor, sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		descriptors = append(descriptors, Describe(t))
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// Invoke executes a registered tool by name with full instrumentation.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, sdk.NewNotFoundError("tool.Invoke",
			fmt.Errorf("tool %q is not registered", name))
	}

	invocationID := uuid.NewString()
	attrs := []attribute.KeyValue{
		attribute.String("tool.name", name),
		attribute.String("tool.invocation_id", invocationID),
	}

	ctx, span := r.tracer.Start(ctx, "tool.invoke",
		trace.WithAttributes(attrs...))
	defer span.End()

	logger := r.logger.With("tool", name, "invocation_id", invocationID)
	logger.Debug("tool invocation started")

	start := time.Now()
	output, err := t.Execute(ctx, input)
	elapsed := time.Since(start)

	r.invocations.Add(ctx, 1, metric.WithAttributes(attrs[0]))
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs[0]))

	if err != nil {
		r.failures.Add(ctx, 1, metric.WithAttributes(attrs[0]))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("tool invocation failed", "error", err, "duration", elapsed)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug("tool invocation complete", "duration", elapsed)
	return output, nil
}
