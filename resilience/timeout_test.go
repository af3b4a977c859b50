package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteWithTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		op      func(context.Context) error
		wantErr error
	}{
		{
			name:    "completes",
			timeout: time.Second,
			op:      succeed,
		},
		{
			name:    "propagates error",
			timeout: time.Second,
			op:      fail,
			wantErr: errBoom,
		},
		{
			name:    "times out",
			timeout: 10 * time.Millisecond,
			op: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr: ErrTimeout,
		},
		{
			name:    "does not wait for a stuck op",
			timeout: 10 * time.Millisecond,
			op: func(context.Context) error {
				time.Sleep(200 * time.Millisecond)
				return nil
			},
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExecuteWithTimeout(context.Background(), tt.timeout, tt.op)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ExecuteWithTimeout() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExecuteWithTimeout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExecuteWithTimeout_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ExecuteWithTimeout(ctx, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ExecuteWithTimeout() error = %v, want context.Canceled", err)
	}
}

func TestExecuteWithTimeout_DefaultDuration(t *testing.T) {
	var deadline time.Time
	_ = ExecuteWithTimeout(context.Background(), 0, func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	if remaining := time.Until(deadline); remaining <= 0 || remaining > DefaultTimeout {
		t.Fatalf("deadline remaining = %v, want within (0, %v]", remaining, DefaultTimeout)
	}
}
