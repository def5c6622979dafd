// Package observability defines the vendor-neutral telemetry ports used
// across the commerce core. Application code depends on these interfaces
// only; the zap, prometheus, and otel adapters live under
// internal/infrastructure/observability.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the three telemetry ports a service receives.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

// Tracer starts spans for use-case and transport boundaries.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Logger is a structured leveled logger.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a typed log attribute.
type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Err is shorthand for the conventional error field.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// MetricKey names an instrument; the known keys live in metrics.go.
type MetricKey string

// Metrics hands out instruments by key. Unknown keys yield nop instruments
// rather than panics, so a renamed key degrades to silence.
type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Add(delta float64, labels ...Label)
	Bind(labels ...Label) BoundCounter
}

// BoundCounter is a Counter with its label set fixed up front, for hot paths.
type BoundCounter interface {
	Add(delta float64)
}

// Histogram records a distribution of observed values.
type Histogram interface {
	Observe(value float64, labels ...Label)
	Bind(labels ...Label) BoundHistogram
}

// BoundHistogram is a Histogram with its label set fixed up front.
type BoundHistogram interface {
	Observe(value float64)
}

// Label is a metric dimension.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }
