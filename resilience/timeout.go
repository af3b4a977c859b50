package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout applies when a zero or negative duration is configured.
const DefaultTimeout = 5 * time.Second

// ExecuteWithTimeout runs op with a deadline of d. If op has not returned
// when the deadline passes, ExecuteWithTimeout returns ErrTimeout without
// waiting for it; op observes cancellation through its context.
// Cancellation of the parent context is returned as ctx.Err().
func ExecuteWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		d = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
