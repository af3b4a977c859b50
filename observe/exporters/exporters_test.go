package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestNewSpanExporter(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"stdout", "none", ""} {
		exp, err := NewSpanExporter(ctx, name, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("NewSpanExporter(%q) error = %v", name, err)
		}
		_ = exp.Shutdown(ctx)
	}
	if _, err := NewSpanExporter(ctx, "zipkin", nil); !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("expected ErrUnknownExporter, got %v", err)
	}
}

func TestNewSpanExporter_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	if _, err := NewSpanExporter(context.Background(), "otlp", nil); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("expected ErrEndpointNotConfigured, got %v", err)
	}
}

func TestNewMetricReader(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"stdout", "none", "prometheus"} {
		r, err := NewMetricReader(ctx, name, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("NewMetricReader(%q) error = %v", name, err)
		}
		_ = r.Shutdown(ctx)
	}
	if _, err := NewMetricReader(ctx, "statsd", nil); !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("expected ErrUnknownExporter, got %v", err)
	}
}

func TestNewMetricReader_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	if _, err := NewMetricReader(context.Background(), "otlp", nil); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("expected ErrEndpointNotConfigured, got %v", err)
	}
}
