package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type middlewareFixture struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newMiddlewareFixture(t *testing.T) middlewareFixture {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	metrics, reader := newTestMetrics(t)
	var logs bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("info", &logs))
	return middlewareFixture{mw: mw, spans: spans, reader: reader, logs: &logs}
}

func TestMiddleware_Allowed(t *testing.T) {
	f := newMiddlewareFixture(t)
	op := OperationMeta{Name: "movies", Kind: "query", Requirements: []string{"movie.read"}}

	wrapped := f.mw.Wrap(func(context.Context, OperationMeta) (bool, error) {
		return true, nil
	})
	allowed, err := wrapped(context.Background(), op)
	if err != nil || !allowed {
		t.Fatalf("wrapped() = %v, %v; want true, nil", allowed, err)
	}

	if spans := f.spans.Ended(); len(spans) != 1 || spans[0].Name() != "auth.query.movies" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	entry := decodeLine(t, f.logs)
	if entry["msg"] != "auth-passed" {
		t.Errorf("expected msg='auth-passed', got %v", entry["msg"])
	}
	if entry["path"] != "movies" {
		t.Errorf("expected path='movies', got %v", entry["path"])
	}
	if _, ok := entry["duration_ms"].(float64); !ok {
		t.Errorf("expected numeric duration_ms, got %v", entry["duration_ms"])
	}
}

func TestMiddleware_ErrorPropagates(t *testing.T) {
	f := newMiddlewareFixture(t)
	denied := errors.New("access denied")

	wrapped := f.mw.Wrap(func(context.Context, OperationMeta) (bool, error) {
		return false, denied
	})
	allowed, err := wrapped(context.Background(), OperationMeta{Name: "deleteMovies"})
	if allowed || !errors.Is(err, denied) {
		t.Fatalf("wrapped() = %v, %v; want false, %v", allowed, err, denied)
	}

	entry := decodeLine(t, f.logs)
	if entry["msg"] != "auth-failed" {
		t.Errorf("expected msg='auth-failed', got %v", entry["msg"])
	}
	if entry["error"] != "access denied" {
		t.Errorf("expected error field, got %v", entry["error"])
	}
	rm := collect(t, f.reader)
	if got := sumOf(t, findMetric(rm, "auth.decision.denied")); got != 1 {
		t.Errorf("auth.decision.denied = %d, want 1", got)
	}
}

func TestMiddleware_SoftDeny(t *testing.T) {
	f := newMiddlewareFixture(t)
	wrapped := f.mw.Wrap(func(context.Context, OperationMeta) (bool, error) {
		return false, nil
	})
	allowed, err := wrapped(context.Background(), OperationMeta{Name: "signup"})
	if allowed || err != nil {
		t.Fatalf("wrapped() = %v, %v; want false, nil", allowed, err)
	}
	if entry := decodeLine(t, f.logs); entry["msg"] != "auth-failed" {
		t.Errorf("expected msg='auth-failed', got %v", entry["msg"])
	}
}

func TestNewMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	allowed, err := mw.Wrap(func(context.Context, OperationMeta) (bool, error) {
		return true, nil
	})(context.Background(), OperationMeta{Name: "x"})
	if !allowed || err != nil {
		t.Fatalf("wrapped() = %v, %v", allowed, err)
	}
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("MiddlewareFromObserver(nil) error = %v, want ErrNilObserver", err)
	}
}
