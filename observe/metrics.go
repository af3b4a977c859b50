package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records credential verification and policy decision metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordVerification records one verification call. Outcome is
	// "verified", "refreshed", "anonymous" or a failure name.
	RecordVerification(ctx context.Context, outcome string, duration time.Duration)

	// RecordDecision records one policy evaluation for an operation.
	RecordDecision(ctx context.Context, meta OperationMeta, allowed bool, err error)
}

type metricsImpl struct {
	verifications metric.Int64Counter
	verifyLatency metric.Float64Histogram
	decisions     metric.Int64Counter
	denials       metric.Int64Counter
}

// NewMetrics creates otel-backed Metrics on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	verifications, err := meter.Int64Counter(
		"auth.verify.total",
		metric.WithDescription("Credential verifications by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	verifyLatency, err := meter.Float64Histogram(
		"auth.verify.duration_ms",
		metric.WithDescription("Credential verification duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		"auth.decision.total",
		metric.WithDescription("Policy evaluations per operation"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	denials, err := meter.Int64Counter(
		"auth.decision.denied",
		metric.WithDescription("Policy evaluations that denied the operation"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		verifications: verifications,
		verifyLatency: verifyLatency,
		decisions:     decisions,
		denials:       denials,
	}, nil
}

func (m *metricsImpl) RecordVerification(ctx context.Context, outcome string, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("auth.outcome", outcome))
	m.verifications.Add(ctx, 1, opt)
	m.verifyLatency.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordDecision(ctx context.Context, meta OperationMeta, allowed bool, err error) {
	attrs := append(meta.attributes(), attribute.Bool("auth.allowed", allowed))
	opt := metric.WithAttributes(attrs...)
	m.decisions.Add(ctx, 1, opt)
	if !allowed || err != nil {
		m.denials.Add(ctx, 1, opt)
	}
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordVerification(context.Context, string, time.Duration)  {}
func (nopMetrics) RecordDecision(context.Context, OperationMeta, bool, error) {}
