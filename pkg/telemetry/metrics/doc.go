// Package metrics exports validation metrics to Prometheus.
//
// A Collector is passed to the engine both as its metrics sink and as the
// observer of every result builder:
//
//	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
//	eng, err := engine.New(cfg,
//		engine.WithMetrics(collector),
//		engine.WithObserver(collector),
//	)
//	http.Handle("/metrics", collector.Handler())
//
// Violation counts are labelled by rule set and property. Label pairs beyond
// MaxPropertyCardinality are folded into property="other".
package metrics
