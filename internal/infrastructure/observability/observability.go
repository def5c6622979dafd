// Package observability assembles the concrete telemetry provider from the
// zap, prometheus, and otel adapters in its subpackages.
package observability

import (
	"github.com/shopvn-labs/commerce-core/internal/observability"
)

// telemetry satisfies both Observability and Metrics; instrument lookup is a
// map hit, unknown keys degrade to nop instruments.
type telemetry struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// New wires a telemetry provider from the supplied adapters. Nil pieces are
// replaced with nops so partially-configured environments (tests, tools)
// still get a working provider.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &telemetry{
		tracer:     tracer,
		logger:     logger,
		counters:   counters,
		histograms: histograms,
	}
}

func (t *telemetry) Tracer() observability.Tracer   { return t.tracer }
func (t *telemetry) Logger() observability.Logger   { return t.logger }
func (t *telemetry) Metrics() observability.Metrics { return t }

func (t *telemetry) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := t.counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (t *telemetry) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := t.histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}
