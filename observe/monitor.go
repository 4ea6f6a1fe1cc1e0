package observe

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// TimerHandle is an opaque correlator between a timer start and its stop.
// The operation name travels inside the handle, so stopping never has to
// re-derive it from the identifier.
type TimerHandle struct {
	id uuid.UUID
	op string
}

// Operation returns the operation name the timer was started for.
func (h TimerHandle) Operation() string {
	return h.op
}

// PerformanceMonitor correlates the start and end of named operations and
// emits their duration as timing metrics, without requiring callers to do
// wall-clock arithmetic. Concurrent timers for the same operation name are
// kept apart by their handles.
type PerformanceMonitor struct {
	logger  *Logger
	metrics *MetricsCollector
	tracer  trace.Tracer

	mu     sync.Mutex
	timers map[uuid.UUID]time.Time
}

// NewPerformanceMonitor creates a monitor. A nil tracer disables spans.
func NewPerformanceMonitor(logger *Logger, metrics *MetricsCollector, tracer trace.Tracer) *PerformanceMonitor {
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &PerformanceMonitor{
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		timers:  make(map[uuid.UUID]time.Time),
	}
}

// StartTimer registers the current time under a fresh handle and returns it.
func (m *PerformanceMonitor) StartTimer(operation string) TimerHandle {
	h := TimerHandle{id: uuid.New(), op: operation}

	m.mu.Lock()
	m.timers[h.id] = time.Now()
	m.mu.Unlock()

	return h
}

// EndTimer removes the registered start time for the handle, emits a timing
// metric named operation.<name> and returns the elapsed milliseconds. An
// unknown or already-ended handle logs a warning and returns 0.
func (m *PerformanceMonitor) EndTimer(h TimerHandle, tags map[string]string) float64 {
	m.mu.Lock()
	start, ok := m.timers[h.id]
	delete(m.timers, h.id)
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("ended a timer that was never started", &Context{Extra: map[string]any{
			"operation": h.op,
		}}, nil)
		return 0
	}

	durationMs := float64(time.Since(start)) / float64(time.Millisecond)
	m.metrics.Timing("operation."+h.op, durationMs, tags)
	return durationMs
}

// Measure runs fn inside a timer and a span. The timer is closed exactly
// once on every path: on failure the tags gain status=error before the timer
// stops, and the original error is returned unchanged.
func (m *PerformanceMonitor) Measure(ctx context.Context, operation string, fn func(context.Context) error, tags map[string]string) error {
	ctx, span := m.tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindInternal))
	h := m.StartTimer(operation)

	err := fn(ctx)
	if err != nil {
		m.EndTimer(h, withStatusError(tags))
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.End()
		return err
	}

	durationMs := m.EndTimer(h, tags)
	span.SetStatus(codes.Ok, "")
	span.End()

	extra := map[string]any{"durationMs": durationMs}
	for k, v := range tags {
		extra[k] = v
	}
	m.logger.Debug(operation+" completed", &Context{Extra: extra})

	return nil
}

// MeasureQuery measures a datastore operation as db.<name>, tagging it with
// the shop and customer identifiers when present.
func (m *PerformanceMonitor) MeasureQuery(ctx context.Context, name string, fn func(context.Context) error, shopID, customerID string) error {
	tags := make(map[string]string, 2)
	if shopID != "" {
		tags["shopId"] = shopID
	}
	if customerID != "" {
		tags["customerId"] = customerID
	}
	return m.Measure(ctx, "db."+name, fn, tags)
}

// MeasureAPICall measures an outbound call as api.<endpoint>.
func (m *PerformanceMonitor) MeasureAPICall(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	return m.Measure(ctx, "api."+endpoint, fn, map[string]string{"endpoint": endpoint})
}

// WithTiming wraps fn so every invocation is measured under the given
// operation name. Applied explicitly at call sites.
func (m *PerformanceMonitor) WithTiming(operation string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return m.Measure(ctx, operation, fn, nil)
	}
}

// withStatusError returns a copy of tags with status=error set. The caller's
// map is never mutated.
func withStatusError(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		out[k] = v
	}
	out["status"] = "error"
	return out
}
