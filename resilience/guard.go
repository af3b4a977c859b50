package resilience

import (
	"context"
	"time"
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Timeout bounds each call. Default: DefaultTimeout.
	Timeout time.Duration

	// Breaker configures the circuit breaker wrapped around the timeout.
	Breaker CircuitBreakerConfig
}

// Guard runs calls through a circuit breaker and then a timeout. A timed
// out call counts as a breaker failure.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: returns ErrCircuitOpen, ErrTimeout, ctx.Err() or op's error.
type Guard struct {
	timeout time.Duration
	breaker *CircuitBreaker
}

// NewGuard creates a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Guard{
		timeout: cfg.Timeout,
		breaker: NewCircuitBreaker(cfg.Breaker),
	}
}

// Execute runs op under the breaker and the configured timeout.
func (g *Guard) Execute(ctx context.Context, op func(context.Context) error) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return ExecuteWithTimeout(ctx, g.timeout, op)
	})
}

// Timeout returns the per-call deadline.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// Breaker exposes the underlying breaker for inspection.
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}
