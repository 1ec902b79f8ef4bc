package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/verity/pkg/config"
	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/history/storage"
	"mercator-hq/verity/pkg/results"
	"mercator-hq/verity/pkg/rules/parser"
	"mercator-hq/verity/pkg/rules/source"
	"mercator-hq/verity/pkg/rules/validator"
)

// newParser returns a rule parser honouring the configured extensions.
func newParser(cfg *config.Config) *parser.Parser {
	return parser.NewParser().WithExtensions(cfg.Rules.Extensions)
}

// newLinter returns a rule linter honouring the configured depth limit.
func newLinter(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(validator.WithMaxDepth(cfg.Rules.MaxDepth))
}

// newRuleSource returns the rule source for path, or the configured rules
// path when path is empty.
func newRuleSource(cfg *config.Config, path string, logger *slog.Logger) *source.FileSource {
	if path == "" {
		path = cfg.Rules.Path
	}
	return source.NewFileSource(path,
		source.WithParser(newParser(cfg)),
		source.WithValidator(newLinter(cfg)),
		source.WithLogger(logger),
	)
}

// newEngine builds the validation engine from configuration. Builder events
// are logged at debug level and passed to any extra observers.
func newEngine(cfg *config.Config, logger *slog.Logger, m engine.Metrics, observers ...results.Observer) (*engine.Engine, error) {
	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	observers = append([]results.Observer{results.NewLogObserver(logger)}, observers...)
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithObserver(results.Observers(observers...)),
	}
	if m != nil {
		opts = append(opts, engine.WithMetrics(m))
	}
	return engine.New(engCfg, opts...)
}

// openStorage opens the configured history backend.
func openStorage(cfg *config.Config) (history.Storage, error) {
	switch cfg.History.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		sc := cfg.SQLiteConfig()
		if sc.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		return storage.NewSQLiteStorage(sc)
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}
}
