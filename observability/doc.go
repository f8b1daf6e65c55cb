// Package observability wires OpenTelemetry tracing and metrics for inflight.
//
// InitTracer and InitMeter install OTLP/HTTP exporters on the global
// providers. Metrics holds the instruments the multiplexer and the HTTP
// transport record into; a nil *Metrics records nothing.
//
// # Configuration
//
//	observability:
//	  endpoint: "localhost:4318"
//	  tracing_enabled: true
//	  sample_rate: 0.25
package observability
