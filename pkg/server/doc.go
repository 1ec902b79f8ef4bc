// Package server exposes the validation engine over HTTP.
//
// # Endpoints
//
//	POST /v1/validate/{ruleset}  validate the JSON body against a rule set
//	GET  /v1/rulesets            list loaded rule sets
//	GET  /v1/history             query stored validation records
//	GET  /v1/history/{id}        fetch one record
//	GET  /healthz, /readyz       liveness and readiness
//	GET  /metrics                Prometheus metrics
//
// History, health and metrics routes are registered only when the matching
// option is given. A validation always answers 200 with the report; an
// invalid subject is data, not an error. Unknown rule sets answer 404 and
// evaluation errors (fail-closed mode) answer 422.
//
// # Basic Usage
//
//	srv := server.NewServer(&cfg.Server, eng,
//	    server.WithRecorder(rec),
//	    server.WithHistory(store),
//	    server.WithHealth(checker),
//	    server.WithMetricsHandler("/metrics", collector.Handler()),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled and then shuts down gracefully within
// ShutdownTimeout.
package server
