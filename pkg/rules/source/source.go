package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/verity/pkg/rules/ast"
	rulesErrors "mercator-hq/verity/pkg/rules/errors"
	"mercator-hq/verity/pkg/rules/parser"
	"mercator-hq/verity/pkg/rules/validator"
)

// LoadError indicates rule sets could not be loaded from a path.
type LoadError struct {
	Path  string
	Cause error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load rule sets from %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Target receives freshly loaded rule sets. *engine.Engine implements it.
type Target interface {
	Load(ruleSets []*ast.RuleSet) error
}

// FileSource loads rule sets from a YAML file or a directory of YAML files and
// lints them before handing them out.
type FileSource struct {
	path      string
	parser    *parser.Parser
	validator *validator.Validator
	logger    *slog.Logger
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithParser overrides the rule file parser.
func WithParser(p *parser.Parser) Option {
	return func(s *FileSource) {
		s.parser = p
	}
}

// WithValidator overrides the rule set linter.
func WithValidator(v *validator.Validator) Option {
	return func(s *FileSource) {
		s.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileSource creates a source for a file or directory path.
func NewFileSource(path string, opts ...Option) *FileSource {
	s := &FileSource{
		path:      path,
		parser:    parser.NewParser(),
		validator: validator.NewValidator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the watched path.
func (s *FileSource) Path() string {
	return s.path
}

// Load parses and lints every rule set under the path. Any parse or lint
// error fails the whole load with a *LoadError wrapping an *errors.ErrorList.
func (s *FileSource) Load(ctx context.Context) ([]*ast.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Cause: err}
	}

	var ruleSets []*ast.RuleSet
	if info.IsDir() {
		ruleSets, err = s.parser.ParseDir(s.path)
	} else {
		var rs *ast.RuleSet
		rs, err = s.parser.Parse(s.path)
		if rs != nil {
			ruleSets = []*ast.RuleSet{rs}
		}
	}
	if err != nil {
		return nil, &LoadError{Path: s.path, Cause: err}
	}

	errs := rulesErrors.NewErrorList()
	for _, rs := range ruleSets {
		res := s.validator.Lint(rs)
		errs.Merge(res.Errors)
		for _, w := range res.Warnings {
			s.logger.Warn("rule set warning",
				"rule_set", rs.Name,
				"property", w.Property,
				"message", w.Message,
				"location", w.Location.String(),
			)
		}
	}
	if errs.HasErrors() {
		return nil, &LoadError{Path: s.path, Cause: errs}
	}

	s.logger.Debug("rule sets loaded from disk", "path", s.path, "count", len(ruleSets))
	return ruleSets, nil
}

// Reload loads rule sets from the source and hands them to the target.
// Nothing is handed over when loading fails, so the target keeps its current
// rule sets.
func Reload(ctx context.Context, src *FileSource, target Target) error {
	ruleSets, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if err := target.Load(ruleSets); err != nil {
		return &LoadError{Path: src.path, Cause: err}
	}
	return nil
}
