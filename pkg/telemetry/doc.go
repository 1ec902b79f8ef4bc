// Package telemetry groups the observability packages:
//
//   - logging: root slog logger from configuration
//   - metrics: Prometheus collector for validations, builders and history
//   - health: liveness and readiness probes
package telemetry
