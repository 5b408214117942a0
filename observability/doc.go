// Package observability wires OpenTelemetry tracing and metrics.
//
// Both providers export over OTLP/HTTP and are disabled by default. When
// disabled, the global no-op providers stay in place and instrumented code
// pays almost nothing.
//
//	telemetry:
//	  enabled: true
//	  endpoint: localhost:4318
//	  insecure: true
//	  sample_rate: 0.25
//
// Auth operations are counted through AuthMetrics:
//
//	m, _ := observability.NewAuthMetrics(observability.Meter("codecompass/auth"))
//	m.Record(ctx, observability.OpLogin, observability.OutcomeSuccess, elapsed)
package observability
