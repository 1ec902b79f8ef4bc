package config

import (
	"io"

	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history/recorder"
	"mercator-hq/verity/pkg/history/retention"
	"mercator-hq/verity/pkg/history/storage"
	"mercator-hq/verity/pkg/rules/source"
	"mercator-hq/verity/pkg/telemetry/logging"
	"mercator-hq/verity/pkg/telemetry/metrics"
)

// EngineConfig converts the engine section. The configuration must have
// passed Validate.
func (c *Config) EngineConfig() (*engine.Config, error) {
	mode, err := engine.ParseFailSafeMode(c.Engine.FailSafeMode)
	if err != nil {
		return nil, err
	}
	leaf, err := engine.ParseLeafMode(c.Engine.LeafMode)
	if err != nil {
		return nil, err
	}
	return engine.DefaultConfig().
		WithFailSafeMode(mode).
		WithShortCircuit(c.Engine.ShortCircuit).
		WithLeafMode(leaf).
		WithMaxConcurrency(c.Engine.MaxConcurrency).
		WithMaxRuleSets(c.Engine.MaxRuleSets), nil
}

// WatcherConfig converts the rules section into a watcher configuration.
func (c *Config) WatcherConfig() *source.WatcherConfig {
	wc := source.DefaultWatcherConfig()
	wc.Path = c.Rules.Path
	wc.DebounceInterval = c.Rules.DebounceInterval
	wc.Extensions = append([]string(nil), c.Rules.Extensions...)
	return wc
}

// SQLiteConfig converts the history SQLite section.
func (c *Config) SQLiteConfig() *storage.SQLiteConfig {
	s := c.History.SQLite
	return &storage.SQLiteConfig{
		Path:         s.Path,
		Driver:       s.Driver,
		MaxOpenConns: s.MaxOpenConns,
		MaxIdleConns: s.MaxIdleConns,
		WALMode:      s.WALMode,
		BusyTimeout:  s.BusyTimeout,
	}
}

// RecorderConfig converts the history recorder section.
func (c *Config) RecorderConfig() *recorder.Config {
	return &recorder.Config{
		Enabled:      c.History.Enabled,
		WriteTimeout: c.History.Recorder.WriteTimeout,
		HashSubjects: c.History.Recorder.HashSubjects,
	}
}

// RetentionConfig converts the history retention section.
func (c *Config) RetentionConfig() *retention.Config {
	return &retention.Config{
		RetentionDays: c.History.Retention.Days,
		PruneSchedule: c.History.Retention.Schedule,
		MaxRecords:    c.History.Retention.MaxRecords,
	}
}

// LoggingConfig converts the logging section, writing to w.
func (c *Config) LoggingConfig(w io.Writer) logging.Config {
	l := c.Telemetry.Logging
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		AddSource:  l.AddSource,
		RedactKeys: l.RedactKeys,
		Writer:     w,
	}
}

// MetricsConfig converts the metrics section.
func (c *Config) MetricsConfig() *metrics.Config {
	m := c.Telemetry.Metrics
	mc := metrics.DefaultConfig()
	mc.Enabled = m.Enabled
	mc.Namespace = m.Namespace
	mc.Subsystem = m.Subsystem
	mc.MaxPropertyCardinality = m.MaxPropertyCardinality
	return mc
}
