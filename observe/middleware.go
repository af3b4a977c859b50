package observe

import (
	"context"
	"time"
)

// DecisionFunc evaluates access to one operation. A nil error with
// allowed=false is a non-raising deny.
type DecisionFunc func(ctx context.Context, op OperationMeta) (allowed bool, err error)

// Middleware wraps policy decisions with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe DecisionFunc.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Wrap wraps fn with a span, a decision metric and one auth-passed/auth-failed log line.
func (m *Middleware) Wrap(fn DecisionFunc) DecisionFunc {
	return func(ctx context.Context, op OperationMeta) (bool, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()

		allowed, err := fn(ctx, op)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordDecision(ctx, op, allowed, err)

		fields := []Field{
			F("path", op.OperationPath()),
			F("roles", op.Requirements),
			F("duration_ms", float64(time.Since(start).Microseconds())/1000),
		}
		if err != nil {
			fields = append(fields, F("error", err))
		}
		if allowed && err == nil {
			m.logger.Info(ctx, "auth-passed", fields...)
		} else {
			m.logger.Info(ctx, "auth-failed", fields...)
		}
		return allowed, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
