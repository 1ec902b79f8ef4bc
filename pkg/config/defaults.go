package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1048576) // 1MB

	// Rules defaults
	DefaultRulesPath        = "./rules"
	DefaultRulesWatch       = false
	DefaultDebounceInterval = 100 * time.Millisecond
	DefaultMaxDepth         = 32

	// Engine defaults
	DefaultFailSafeMode   = "fail-safe-default"
	DefaultLeafMode       = "popped"
	DefaultMaxConcurrency = 8
	DefaultMaxRuleSets    = 100

	// History defaults
	DefaultHistoryEnabled      = true
	DefaultHistoryBackend      = "sqlite"
	DefaultSQLitePath          = "data/history.db"
	DefaultSQLiteDriver        = "sqlite3"
	DefaultSQLiteMaxOpenConns  = 10
	DefaultSQLiteMaxIdleConns  = 5
	DefaultSQLiteWALMode       = true
	DefaultSQLiteBusyTimeout   = 5 * time.Second
	DefaultRecorderTimeout     = 5 * time.Second
	DefaultRecorderHashSubject = true
	DefaultRetentionDays       = 90
	DefaultRetentionSchedule   = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "json"
	DefaultMetricsEnabled         = true
	DefaultMetricsPath            = "/metrics"
	DefaultMetricsNamespace       = "verity"
	DefaultMaxPropertyCardinality = 10000
)

// DefaultRuleExtensions are the rule file extensions used when none are set.
var DefaultRuleExtensions = []string{".yaml", ".yml"}

// Defaults returns a configuration with every field at its default. File
// configuration is decoded on top of it, so boolean defaults survive fields
// the file leaves out.
func Defaults() *Config {
	cfg := &Config{
		Rules: RulesConfig{
			Watch: DefaultRulesWatch,
		},
		History: HistoryConfig{
			Enabled: DefaultHistoryEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultSQLiteWALMode,
			},
			Recorder: RecorderConfig{
				HashSubjects: DefaultRecorderHashSubject,
			},
			Retention: RetentionConfig{
				Days:     DefaultRetentionDays,
				Schedule: DefaultRetentionSchedule,
			},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued non-boolean fields with their defaults.
// Retention days and schedule are left alone since zero and empty are
// meaningful there.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyRulesDefaults(&cfg.Rules)
	applyEngineDefaults(&cfg.Engine)
	applyHistoryDefaults(&cfg.History)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func applyRulesDefaults(r *RulesConfig) {
	if r.Path == "" {
		r.Path = DefaultRulesPath
	}
	if r.DebounceInterval == 0 {
		r.DebounceInterval = DefaultDebounceInterval
	}
	if len(r.Extensions) == 0 {
		r.Extensions = append([]string(nil), DefaultRuleExtensions...)
	}
	if r.MaxDepth == 0 {
		r.MaxDepth = DefaultMaxDepth
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.FailSafeMode == "" {
		e.FailSafeMode = DefaultFailSafeMode
	}
	if e.LeafMode == "" {
		e.LeafMode = DefaultLeafMode
	}
	if e.MaxConcurrency == 0 {
		e.MaxConcurrency = DefaultMaxConcurrency
	}
	if e.MaxRuleSets == 0 {
		e.MaxRuleSets = DefaultMaxRuleSets
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.Backend == "" {
		h.Backend = DefaultHistoryBackend
	}
	if h.SQLite.Path == "" {
		h.SQLite.Path = DefaultSQLitePath
	}
	if h.SQLite.Driver == "" {
		h.SQLite.Driver = DefaultSQLiteDriver
	}
	if h.SQLite.MaxOpenConns == 0 {
		h.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if h.SQLite.MaxIdleConns == 0 {
		h.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if h.SQLite.BusyTimeout == 0 {
		h.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if h.Recorder.WriteTimeout == 0 {
		h.Recorder.WriteTimeout = DefaultRecorderTimeout
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.MaxPropertyCardinality == 0 {
		t.Metrics.MaxPropertyCardinality = DefaultMaxPropertyCardinality
	}
}
