// Package health reports whether the guard is ready to take traffic.
//
// A Checker reports one component: the key registry, the refresh
// collaborator's breaker or process memory. An Aggregator runs every
// registered checker under one deadline and folds the results into a
// single Status, which the HTTP handlers expose as liveness and
// readiness probes.
//
//	agg := health.NewAggregator()
//	agg.Register(registry) // *auth.KeyRegistry is a Checker
//	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//
//	r := chi.NewRouter()
//	health.Mount(r, agg)
//
// Readiness stays unhealthy until the key registry has been initialized,
// so a load balancer never routes requests to a process that cannot
// verify credentials.
package health
