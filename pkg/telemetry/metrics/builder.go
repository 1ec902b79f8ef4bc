package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/verity/pkg/results"
)

// BuilderMetrics tracks result builder pruning.
//
// Metrics:
//   - verity_builder_pruned_nodes_total: successful nodes excised, by node kind
//   - verity_builder_stored_trees_total: failure trees stored, by root kind
type BuilderMetrics struct {
	prunedNodes *prometheus.CounterVec
	storedTrees *prometheus.CounterVec
}

// NewBuilderMetrics creates and registers builder metrics.
func NewBuilderMetrics(cfg *Config, registry *prometheus.Registry) *BuilderMetrics {
	bm := &BuilderMetrics{
		prunedNodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "builder_pruned_nodes_total",
				Help:      "Total number of successful nodes pruned from failure trees",
			},
			[]string{"kind"},
		),

		storedTrees: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "builder_stored_trees_total",
				Help:      "Total number of failure trees stored",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(bm.prunedNodes, bm.storedTrees)
	return bm
}

// RecordPrune records a pruned node.
func (bm *BuilderMetrics) RecordPrune(kind results.Kind) {
	bm.prunedNodes.WithLabelValues(string(kind)).Inc()
}

// RecordStore records a stored failure tree.
func (bm *BuilderMetrics) RecordStore(kind results.Kind) {
	bm.storedTrees.WithLabelValues(string(kind)).Inc()
}
