package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuard_TimeoutCountsAsFailure(t *testing.T) {
	g := NewGuard(GuardConfig{
		Timeout: 5 * time.Millisecond,
		Breaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute},
	})
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	for i := 0; i < 2; i++ {
		if err := g.Execute(context.Background(), slow); !errors.Is(err, ErrTimeout) {
			t.Fatalf("call %d error = %v, want ErrTimeout", i, err)
		}
	}
	if err := g.Execute(context.Background(), succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if g.Breaker().State() != StateOpen {
		t.Fatalf("state = %v, want open", g.Breaker().State())
	}
}

func TestGuard_Defaults(t *testing.T) {
	g := NewGuard(GuardConfig{})
	if g.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", g.Timeout(), DefaultTimeout)
	}
	if err := g.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}
