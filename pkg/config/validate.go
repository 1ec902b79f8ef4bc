package config

import (
	"fmt"
	"net"
	"strings"

	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history/retention"
	"mercator-hq/verity/pkg/history/storage"
	"mercator-hq/verity/pkg/telemetry/logging"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// collecting every failing field, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: %v", s.ListenAddress, err),
		})
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must not be negative"})
	}
	if s.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}

	return errs
}

func validateRules(r *RulesConfig) []FieldError {
	var errs []FieldError

	if r.Path == "" {
		errs = append(errs, FieldError{Field: "rules.path", Message: "is required"})
	}
	if r.DebounceInterval < 0 {
		errs = append(errs, FieldError{Field: "rules.debounce_interval", Message: "must not be negative"})
	}
	if r.MaxDepth < 1 {
		errs = append(errs, FieldError{Field: "rules.max_depth", Message: fmt.Sprintf("must be at least 1, got %d", r.MaxDepth)})
	}
	for i, ext := range r.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("rules.extensions[%d]", i),
				Message: fmt.Sprintf("extension %q must start with a dot", ext),
			})
		}
	}

	return errs
}

func validateEngine(e *EngineConfig) []FieldError {
	var errs []FieldError

	if _, err := engine.ParseFailSafeMode(e.FailSafeMode); err != nil {
		errs = append(errs, FieldError{
			Field:   "engine.fail_safe_mode",
			Message: fmt.Sprintf("must be fail-open, fail-closed or fail-safe-default, got %q", e.FailSafeMode),
		})
	}
	if _, err := engine.ParseLeafMode(e.LeafMode); err != nil {
		errs = append(errs, FieldError{
			Field:   "engine.leaf_mode",
			Message: fmt.Sprintf("must be popped or attached, got %q", e.LeafMode),
		})
	}
	if e.MaxConcurrency < 1 {
		errs = append(errs, FieldError{Field: "engine.max_concurrency", Message: "must be positive"})
	}
	if e.MaxRuleSets < 1 {
		errs = append(errs, FieldError{Field: "engine.max_rule_sets", Message: "must be positive"})
	}

	return errs
}

func validateHistory(h *HistoryConfig) []FieldError {
	var errs []FieldError

	switch h.Backend {
	case "memory":
	case "sqlite":
		if h.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "history.sqlite.path", Message: "is required for the sqlite backend"})
		}
		if h.SQLite.Driver != storage.DriverCGO && h.SQLite.Driver != storage.DriverPureGo {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.driver",
				Message: fmt.Sprintf("must be %q or %q, got %q", storage.DriverCGO, storage.DriverPureGo, h.SQLite.Driver),
			})
		}
		if h.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "history.sqlite.max_open_conns", Message: "must be positive"})
		}
		if h.SQLite.MaxIdleConns < 0 || h.SQLite.MaxIdleConns > h.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "history.sqlite.max_idle_conns", Message: "must be between 0 and max_open_conns"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "history.backend",
			Message: fmt.Sprintf("must be sqlite or memory, got %q", h.Backend),
		})
	}

	if h.Recorder.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "history.recorder.write_timeout", Message: "must not be negative"})
	}
	if h.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "history.retention.days", Message: "must not be negative"})
	}
	if h.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "history.retention.max_records", Message: "must not be negative"})
	}
	if h.Retention.Schedule != "" {
		if err := retention.ValidateSchedule(h.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{Field: "history.retention.schedule", Message: err.Error()})
		}
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	if _, err := logging.ParseLevel(t.Logging.Level); err != nil {
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: err.Error()})
	}
	if _, err := logging.ParseFormat(t.Logging.Format); err != nil {
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: err.Error()})
	}
	if !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}
	if t.Metrics.MaxPropertyCardinality < 1 {
		errs = append(errs, FieldError{Field: "telemetry.metrics.max_property_cardinality", Message: "must be positive"})
	}

	return errs
}
