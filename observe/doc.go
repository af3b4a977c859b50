// Package observe provides logging, metrics and tracing for credential
// verification and policy decisions.
//
// Logging is structured (zap JSON) behind the small Logger interface so
// the auth core can log without depending on zap directly. Metrics and
// spans are OpenTelemetry; exporters are chosen by name in Config.
package observe
