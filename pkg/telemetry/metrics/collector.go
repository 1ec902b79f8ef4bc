package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verity/pkg/results"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled turns recording on. A disabled collector ignores every call.
	Enabled bool

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "verity" and "".
	Namespace string
	Subsystem string

	// DurationBuckets are the validation duration histogram buckets, in seconds.
	DurationBuckets []float64

	// MaxPropertyCardinality bounds the distinct rule set/property label pairs
	// of the violation counter. Further pairs are counted under "other".
	// Default: 10000
	MaxPropertyCardinality int
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:                true,
		Namespace:              "verity",
		DurationBuckets:        prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to 2.6s
		MaxPropertyCardinality: 10000,
	}
}

// Collector records validation, builder, rule set and history metrics in a
// Prometheus registry. It implements engine.Metrics and results.Observer.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	validationMetrics *ValidationMetrics
	builderMetrics    *BuilderMetrics
	ruleSetMetrics    *RuleSetMetrics
	historyMetrics    *HistoryMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering its metrics with registry.
// A nil registry creates a fresh one.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "verity"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}
	if cfg.MaxPropertyCardinality <= 0 {
		cfg.MaxPropertyCardinality = 10000
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		validationMetrics:  NewValidationMetrics(cfg, registry),
		builderMetrics:     NewBuilderMetrics(cfg, registry),
		ruleSetMetrics:     NewRuleSetMetrics(cfg, registry),
		historyMetrics:     NewHistoryMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxPropertyCardinality),
	}
}

// RecordValidation records one validated subject.
func (c *Collector) RecordValidation(ruleSet string, valid bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.validationMetrics.RecordValidation(ruleSet, valid, duration)
}

// RecordViolation records one failing property.
func (c *Collector) RecordViolation(ruleSet, property string) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(ruleSet + "\x00" + property) {
		property = "other"
	}
	c.validationMetrics.RecordViolation(ruleSet, property)
}

// RecordRuleSetsLoaded sets the number of active rule sets.
func (c *Collector) RecordRuleSetsLoaded(count int) {
	if !c.config.Enabled {
		return
	}
	c.ruleSetMetrics.SetLoaded(count)
}

// RecordReload records a rule set reload attempt.
func (c *Collector) RecordReload(err error) {
	if !c.config.Enabled {
		return
	}
	c.ruleSetMetrics.RecordReload(err == nil)
}

// RecordHistoryStored records a stored history record.
func (c *Collector) RecordHistoryStored(valid bool) {
	if !c.config.Enabled {
		return
	}
	c.historyMetrics.RecordStored(valid)
}

// RecordHistoryPruned records history records removed by retention.
func (c *Collector) RecordHistoryPruned(deleted int64) {
	if !c.config.Enabled {
		return
	}
	c.historyMetrics.RecordPruned(deleted)
}

// Observe counts pruned nodes and stored failure trees of result builders.
func (c *Collector) Observe(e results.Event) {
	if !c.config.Enabled {
		return
	}
	switch e.Type {
	case results.EventPrune:
		c.builderMetrics.RecordPrune(e.Node.Kind())
	case results.EventStore:
		c.builderMetrics.RecordStore(e.Node.Kind())
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
