package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordVerification(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordVerification(ctx, "verified", 2*time.Millisecond)
	m.RecordVerification(ctx, "InvalidToken", time.Millisecond)

	rm := collect(t, reader)
	total := findMetric(rm, "auth.verify.total")
	if total == nil {
		t.Fatal("auth.verify.total metric not found")
	}
	if got := sumOf(t, total); got != 2 {
		t.Errorf("auth.verify.total = %d, want 2", got)
	}
	if findMetric(rm, "auth.verify.duration_ms") == nil {
		t.Error("auth.verify.duration_ms metric not found")
	}
}

func TestMetrics_RecordDecision(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	op := OperationMeta{Name: "createMovie", Kind: "mutation"}

	m.RecordDecision(ctx, op, true, nil)
	m.RecordDecision(ctx, op, false, nil)
	m.RecordDecision(ctx, op, false, errors.New("forbidden"))

	rm := collect(t, reader)
	if got := sumOf(t, findMetric(rm, "auth.decision.total")); got != 3 {
		t.Errorf("auth.decision.total = %d, want 3", got)
	}
	if got := sumOf(t, findMetric(rm, "auth.decision.denied")); got != 2 {
		t.Errorf("auth.decision.denied = %d, want 2", got)
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.RecordVerification(context.Background(), "verified", 0)
	m.RecordDecision(context.Background(), OperationMeta{Name: "x"}, true, nil)
}
