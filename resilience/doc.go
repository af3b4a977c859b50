// Package resilience bounds calls to remote collaborators.
//
// Two patterns are provided and composed by Guard:
//
//   - Timeout: the call is abandoned once its deadline passes and
//     ErrTimeout is returned. The caller decides the duration.
//
//   - Circuit Breaker: after MaxFailures consecutive failures the breaker
//     opens and calls fail fast with ErrCircuitOpen until ResetTimeout
//     elapses and a single probe succeeds.
//
// The credential verifier uses a Guard around session refresh so that a
// slow or failing refresh service degrades to "refresh unavailable"
// instead of stalling request handling.
//
//	g := resilience.NewGuard(resilience.GuardConfig{
//	    Timeout: 2 * time.Second,
//	    Breaker: resilience.CircuitBreakerConfig{MaxFailures: 5},
//	})
//	err := g.Execute(ctx, func(ctx context.Context) error {
//	    return callRefreshService(ctx)
//	})
package resilience
