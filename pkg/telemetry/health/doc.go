// Package health serves liveness and readiness probes.
//
// Components register readiness checks by name; the server mounts the
// handlers at /healthz and /readyz.
package health
