package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VERITY_"

// LoadConfig loads configuration from a YAML file on top of Defaults and
// validates it. An empty path yields the defaults. Unknown keys are errors.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		ApplyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration like LoadConfig, then
// applies VERITY_* environment variables, which take precedence over the
// file. The loading sequence is file, defaults, environment, validation.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if errs := applyEnvOverrides(cfg); len(errs) > 0 {
		return nil, ValidationError{Errors: errs}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}
	return cfg, nil
}

type envOverrides struct {
	errs []FieldError
}

func (o *envOverrides) str(name string, dst *string) {
	if val, ok := os.LookupEnv(EnvPrefix + name); ok && val != "" {
		*dst = val
	}
}

func (o *envOverrides) boolean(name string, dst *bool) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		o.errs = append(o.errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid boolean %q", val)})
		return
	}
	*dst = b
}

func (o *envOverrides) integer(name string, dst *int) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		o.errs = append(o.errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
		return
	}
	*dst = i
}

func (o *envOverrides) integer64(name string, dst *int64) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" {
		return
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		o.errs = append(o.errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
		return
	}
	*dst = i
}

func (o *envOverrides) duration(name string, dst *time.Duration) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		o.errs = append(o.errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid duration %q", val)})
		return
	}
	*dst = d
}

// applyEnvOverrides applies VERITY_SECTION_FIELD variables to cfg and returns
// the variables that could not be parsed.
func applyEnvOverrides(cfg *Config) []FieldError {
	o := &envOverrides{}

	o.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	o.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	o.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	o.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	o.integer64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	o.str("RULES_PATH", &cfg.Rules.Path)
	o.boolean("RULES_WATCH", &cfg.Rules.Watch)
	o.duration("RULES_DEBOUNCE_INTERVAL", &cfg.Rules.DebounceInterval)
	o.integer("RULES_MAX_DEPTH", &cfg.Rules.MaxDepth)

	o.str("ENGINE_FAIL_SAFE_MODE", &cfg.Engine.FailSafeMode)
	o.boolean("ENGINE_SHORT_CIRCUIT", &cfg.Engine.ShortCircuit)
	o.str("ENGINE_LEAF_MODE", &cfg.Engine.LeafMode)
	o.integer("ENGINE_MAX_CONCURRENCY", &cfg.Engine.MaxConcurrency)
	o.integer("ENGINE_MAX_RULE_SETS", &cfg.Engine.MaxRuleSets)

	o.boolean("HISTORY_ENABLED", &cfg.History.Enabled)
	o.str("HISTORY_BACKEND", &cfg.History.Backend)
	o.str("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	o.str("HISTORY_SQLITE_DRIVER", &cfg.History.SQLite.Driver)
	o.boolean("HISTORY_SQLITE_WAL_MODE", &cfg.History.SQLite.WALMode)
	o.boolean("HISTORY_RECORDER_HASH_SUBJECTS", &cfg.History.Recorder.HashSubjects)
	o.integer("HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)
	o.str("HISTORY_RETENTION_SCHEDULE", &cfg.History.Retention.Schedule)
	o.integer64("HISTORY_RETENTION_MAX_RECORDS", &cfg.History.Retention.MaxRecords)

	o.str("LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	o.boolean("METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.str("METRICS_PATH", &cfg.Telemetry.Metrics.Path)

	return o.errs
}
