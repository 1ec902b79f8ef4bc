package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ValidationMetrics tracks validated subjects and failing properties.
//
// Metrics:
//   - verity_validations_total: validations by rule set and outcome
//   - verity_validation_duration_seconds: validation duration by rule set
//   - verity_property_violations_total: failing properties by rule set and property
type ValidationMetrics struct {
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	violationsTotal    *prometheus.CounterVec
}

// NewValidationMetrics creates and registers validation metrics.
func NewValidationMetrics(cfg *Config, registry *prometheus.Registry) *ValidationMetrics {
	vm := &ValidationMetrics{
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validations_total",
				Help:      "Total number of validated subjects",
			},
			[]string{"rule_set", "valid"},
		),

		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_duration_seconds",
				Help:      "Duration of subject validation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"rule_set"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "property_violations_total",
				Help:      "Total number of failing properties",
			},
			[]string{"rule_set", "property"},
		),
	}

	registry.MustRegister(
		vm.validationsTotal,
		vm.validationDuration,
		vm.violationsTotal,
	)

	return vm
}

// RecordValidation records one validated subject.
func (vm *ValidationMetrics) RecordValidation(ruleSet string, valid bool, duration time.Duration) {
	vm.validationsTotal.WithLabelValues(ruleSet, strconv.FormatBool(valid)).Inc()
	vm.validationDuration.WithLabelValues(ruleSet).Observe(duration.Seconds())
}

// RecordViolation records one failing property.
func (vm *ValidationMetrics) RecordViolation(ruleSet, property string) {
	vm.violationsTotal.WithLabelValues(ruleSet, property).Inc()
}
