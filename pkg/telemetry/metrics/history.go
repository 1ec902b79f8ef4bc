package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics tracks validation history storage.
//
// Metrics:
//   - verity_history_records_stored_total: stored records by outcome
//   - verity_history_records_pruned_total: records removed by retention
type HistoryMetrics struct {
	storedTotal *prometheus.CounterVec
	prunedTotal prometheus.Counter
}

// NewHistoryMetrics creates and registers history metrics.
func NewHistoryMetrics(cfg *Config, registry *prometheus.Registry) *HistoryMetrics {
	hm := &HistoryMetrics{
		storedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "history_records_stored_total",
				Help:      "Total number of stored validation history records",
			},
			[]string{"valid"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "history_records_pruned_total",
				Help:      "Total number of history records removed by retention",
			},
		),
	}

	registry.MustRegister(hm.storedTotal, hm.prunedTotal)
	return hm
}

// RecordStored records a stored record.
func (hm *HistoryMetrics) RecordStored(valid bool) {
	hm.storedTotal.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// RecordPruned records removed records.
func (hm *HistoryMetrics) RecordPruned(deleted int64) {
	if deleted > 0 {
		hm.prunedTotal.Add(float64(deleted))
	}
}
