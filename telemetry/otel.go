package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/forgeflow/execorch"

type (
	// OtelMetrics records counters/timers/gauges against the global OTEL
	// MeterProvider. Configure the provider (via otel.SetMeterProvider) before
	// orchestration starts; until then, instruments no-op per the OTEL API
	// contract.
	OtelMetrics struct {
		meter metric.Meter

		mu       sync.Mutex
		counters map[string]metric.Float64Counter
		gauges   map[string]metric.Float64Gauge
	}

	// OtelTracer creates spans against the global OTEL TracerProvider.
	OtelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewOtelMetrics constructs a Metrics recorder backed by the global OTEL meter.
func NewOtelMetrics() Metrics {
	return &OtelMetrics{
		meter:    otel.Meter(instrumentationName),
		counters: make(map[string]metric.Float64Counter),
		gauges:   make(map[string]metric.Float64Gauge),
	}
}

// NewOtelTracer constructs a Tracer backed by the global OTEL tracer.
func NewOtelTracer() Tracer {
	return &OtelTracer{tracer: otel.Tracer(instrumentationName)}
}

func toAttrs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}

func (m *OtelMetrics) counter(name string) metric.Float64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c, _ := m.meter.Float64Counter(name)
	m.counters[name] = c
	return c
}

func (m *OtelMetrics) gauge(name string) metric.Float64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g, _ := m.meter.Float64Gauge(name)
	m.gauges[name] = g
	return g
}

// IncCounter increments a named counter by value, tagged with alternating
// key/value tag pairs.
func (m *OtelMetrics) IncCounter(name string, value float64, tags ...string) {
	m.counter(name).Add(context.Background(), value, metric.WithAttributes(toAttrs(tags)...))
}

// RecordTimer records a duration as a gauge in milliseconds, since the stable
// OTEL metric API exposed here has no histogram instrument builder wired.
func (m *OtelMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	m.gauge(name).Record(context.Background(), float64(d.Milliseconds()), metric.WithAttributes(toAttrs(tags)...))
}

// RecordGauge records an instantaneous value.
func (m *OtelMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.gauge(name).Record(context.Background(), value, metric.WithAttributes(toAttrs(tags)...))
}

// Start begins a new span under the configured tracer.
func (t *OtelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, &otelSpan{span: span}
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *otelSpan) AddEvent(name string, keyvals ...any) {
	s.span.AddEvent(name, trace.WithAttributes(toAttrs(stringifyPairs(keyvals))...))
}

func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// stringifyPairs coerces an alternating any-valued keyval list into string
// pairs so it can be attached as span attributes. Non-string values are
// rendered with a best-effort format verb.
func stringifyPairs(keyvals []any) []string {
	out := make([]string, 0, len(keyvals))
	for _, v := range keyvals {
		switch s := v.(type) {
		case string:
			out = append(out, s)
		default:
			out = append(out, formatAny(s))
		}
	}
	return out
}

func formatAny(v any) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
