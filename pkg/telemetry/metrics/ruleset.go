package metrics

import "github.com/prometheus/client_golang/prometheus"

// RuleSetMetrics tracks the active rule sets and reloads.
//
// Metrics:
//   - verity_rule_sets_loaded: number of active rule sets
//   - verity_rule_set_reloads_total: reload attempts by outcome
type RuleSetMetrics struct {
	loaded       prometheus.Gauge
	reloadsTotal *prometheus.CounterVec
}

// NewRuleSetMetrics creates and registers rule set metrics.
func NewRuleSetMetrics(cfg *Config, registry *prometheus.Registry) *RuleSetMetrics {
	rm := &RuleSetMetrics{
		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_sets_loaded",
				Help:      "Number of active rule sets",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_set_reloads_total",
				Help:      "Total number of rule set reload attempts",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(rm.loaded, rm.reloadsTotal)
	return rm
}

// SetLoaded sets the number of active rule sets.
func (rm *RuleSetMetrics) SetLoaded(count int) {
	rm.loaded.Set(float64(count))
}

// RecordReload records a reload attempt.
func (rm *RuleSetMetrics) RecordReload(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	rm.reloadsTotal.WithLabelValues(outcome).Inc()
}
