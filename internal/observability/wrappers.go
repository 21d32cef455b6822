package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/syntrobox/ociq/internal/capability"
	"github.com/syntrobox/ociq/internal/query"
)

// InstrumentedExecutor wraps a query.Executor with metrics, tracing, and the
// denial watchdog. Every component is optional; a nil field costs one check
// per query.
type InstrumentedExecutor struct {
	inner    query.Executor
	metrics  *MetricsCollector
	tracer   trace.Tracer
	watchdog *Watchdog
}

// NewInstrumentedExecutor wraps a query executor with observability.
func NewInstrumentedExecutor(inner query.Executor, metrics *MetricsCollector, ts *TracerSetup, watchdog *Watchdog) *InstrumentedExecutor {
	var tracer trace.Tracer
	if ts != nil {
		tracer = ts.Tracer()
	}
	return &InstrumentedExecutor{
		inner:    inner,
		metrics:  metrics,
		tracer:   tracer,
		watchdog: watchdog,
	}
}

func (e *InstrumentedExecutor) Execute(ctx context.Context, req query.Request) *query.Envelope {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "query.execute",
			trace.WithAttributes(
				attribute.Int("query.snippet_bytes", len(req.Snippet)),
			))
		defer span.End()
	}

	if e.metrics != nil {
		e.metrics.ActiveQueries.Inc()
		defer e.metrics.ActiveQueries.Dec()
	}

	start := time.Now()
	env := e.inner.Execute(ctx, req)
	duration := time.Since(start).Seconds()

	outcome := "ok"
	if !env.OK {
		outcome = string(env.Kind)
	}

	if e.tracer != nil {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(
			attribute.String("query.request_id", env.RequestID),
			attribute.String("query.outcome", outcome),
		)
		if !env.OK {
			span.SetStatus(codes.Error, env.Message)
		}
	}

	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		e.metrics.QueryDuration.WithLabelValues(outcome).Observe(duration)
		if len(env.Violations) > 0 {
			e.metrics.ValidationViolationsTotal.Add(float64(len(env.Violations)))
		}
	}

	if e.watchdog != nil {
		if env.Kind == query.KindCapabilityDenied {
			e.watchdog.RecordDenied(env.RequestID)
		} else {
			e.watchdog.RecordAdmitted()
		}
	}

	return env
}

func (e *InstrumentedExecutor) Capabilities() capability.Schema {
	return e.inner.Capabilities()
}

var _ query.Executor = (*InstrumentedExecutor)(nil)

// statusCode returns the HTTP status code as a string for metric labels.
func statusCode(code int) string {
	return strconv.Itoa(code)
}
