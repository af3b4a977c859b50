package resilience

import "errors"

// Sentinel errors for guarded calls.
var (
	// ErrCircuitOpen is returned when the breaker rejects a call without running it.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when a call does not finish within its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
