package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta describes a protected operation for telemetry purposes.
type OperationMeta struct {
	Name         string   // operation name, e.g. "createMovie" (required)
	Kind         string   // query|mutation|http|verify (optional)
	Path         string   // resolver path, e.g. "me.token" (optional)
	Requirements []string // declared role requirement tokens (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: auth.<kind>.<name> or auth.<name>
func (m OperationMeta) SpanName() string {
	if m.Kind != "" {
		return "auth." + m.Kind + "." + m.Name
	}
	return "auth." + m.Name
}

// OperationPath returns Path, falling back to Name.
func (m OperationMeta) OperationPath() string {
	if m.Path != "" {
		return m.Path
	}
	return m.Name
}

// Validate reports whether the metadata is usable.
func (m OperationMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

func (m OperationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("auth.operation", m.Name),
		attribute.String("auth.path", m.OperationPath()),
	}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("auth.kind", m.Kind))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation-scoped spans.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NoopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := meta.attributes()
	if len(meta.Requirements) > 0 {
		attrs = append(attrs, attribute.StringSlice("auth.requirements", meta.Requirements))
	}
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer whose spans record nothing.
func NoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
