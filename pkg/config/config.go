package config

import "time"

// Config is the root configuration structure for verity.
type Config struct {
	// Server contains the HTTP validation server configuration.
	Server ServerConfig `yaml:"server"`

	// Rules contains the rule source location and reload settings.
	Rules RulesConfig `yaml:"rules"`

	// Engine contains the validation engine settings.
	Engine EngineConfig `yaml:"engine"`

	// History contains validation history storage, recording and retention.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits the size of a validation request body.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// RulesConfig contains configuration for loading rule sets.
type RulesConfig struct {
	// Path is a rule set file or a directory of rule set files.
	// Default: "./rules"
	Path string `yaml:"path"`

	// Watch reloads rule sets when files under Path change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Extensions lists the rule file extensions.
	// Default: [".yaml", ".yml"]
	Extensions []string `yaml:"extensions"`

	// MaxDepth limits condition nesting.
	// Default: 32
	MaxDepth int `yaml:"max_depth"`
}

// EngineConfig contains configuration for the validation engine.
type EngineConfig struct {
	// FailSafeMode is "fail-open", "fail-closed" or "fail-safe-default".
	// Default: "fail-safe-default"
	FailSafeMode string `yaml:"fail_safe_mode"`

	// ShortCircuit stops compound evaluation at the first deciding child.
	// Default: false
	ShortCircuit bool `yaml:"short_circuit"`

	// LeafMode is the result builder leaf protocol: "popped" or "attached".
	// Default: "popped"
	LeafMode string `yaml:"leaf_mode"`

	// MaxConcurrency bounds batch validation goroutines.
	// Default: 8
	MaxConcurrency int `yaml:"max_concurrency"`

	// MaxRuleSets bounds the number of loaded rule sets.
	// Default: 100
	MaxRuleSets int `yaml:"max_rule_sets"`
}

// HistoryConfig contains configuration for validation history.
type HistoryConfig struct {
	// Enabled records every server validation.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains recording settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains pruning settings.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite backend configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains history recorder configuration.
type RecorderConfig struct {
	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// HashSubjects stores a SHA-256 of each subject.
	// Default: true
	HashSubjects bool `yaml:"hash_subjects"`
}

// RetentionConfig contains history retention configuration.
type RetentionConfig struct {
	// Days is the number of days to keep records; 0 keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is a cron expression for pruning; empty disables it.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the number of records; 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactKeys lists attribute key fragments whose values are masked.
	// Default: password, secret, token, authorization
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled exposes Prometheus metrics.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "verity"
	Namespace string `yaml:"namespace"`

	// Subsystem is the optional second metric name prefix.
	Subsystem string `yaml:"subsystem"`

	// MaxPropertyCardinality bounds distinct violation label pairs.
	// Default: 10000
	MaxPropertyCardinality int `yaml:"max_property_cardinality"`
}
