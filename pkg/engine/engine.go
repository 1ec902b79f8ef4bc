package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mercator-hq/verity/pkg/results"
	"mercator-hq/verity/pkg/rules/ast"
)

// Metrics receives per-validation measurements. The telemetry/metrics
// package provides a Prometheus implementation.
type Metrics interface {
	RecordValidation(ruleSet string, valid bool, duration time.Duration)
	RecordViolation(ruleSet, property string)
	RecordRuleSetsLoaded(count int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithObserver attaches an observer to every result builder the engine creates.
func WithObserver(o results.Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine validates subjects against named rule sets. Rule sets are replaced
// atomically by Load; validations in flight keep the rule sets they started with.
// An Engine is safe for concurrent use.
type Engine struct {
	config   *Config
	logger   *slog.Logger
	metrics  Metrics
	observer results.Observer

	programs atomic.Pointer[map[string]*program]
}

// New creates an engine with no rule sets loaded.
func New(config *Config, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")

	empty := make(map[string]*program)
	e.programs.Store(&empty)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Load compiles rule sets and replaces the active ones. On error the
// previously loaded rule sets stay active.
func (e *Engine) Load(ruleSets []*ast.RuleSet) error {
	if len(ruleSets) > e.config.MaxRuleSets {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyRuleSets, len(ruleSets), e.config.MaxRuleSets)
	}

	programs := make(map[string]*program, len(ruleSets))
	for _, rs := range ruleSets {
		if _, dup := programs[rs.Name]; dup {
			return fmt.Errorf("duplicate rule set name %q", rs.Name)
		}
		p, err := compileRuleSet(rs)
		if err != nil {
			return err
		}
		programs[rs.Name] = p
	}

	e.programs.Store(&programs)
	if e.metrics != nil {
		e.metrics.RecordRuleSetsLoaded(len(programs))
	}
	e.logger.Info("rule sets loaded", "count", len(programs))
	return nil
}

// RuleSets returns the loaded rule sets sorted by name.
func (e *Engine) RuleSets() []*ast.RuleSet {
	programs := *e.programs.Load()
	out := make([]*ast.RuleSet, 0, len(programs))
	for _, p := range programs {
		out = append(out, p.ruleSet)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RuleSet returns a loaded rule set by name.
func (e *Engine) RuleSet(name string) (*ast.RuleSet, bool) {
	p, ok := (*e.programs.Load())[name]
	if !ok {
		return nil, false
	}
	return p.ruleSet, true
}

func (e *Engine) program(name string) (*program, error) {
	p, ok := (*e.programs.Load())[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRuleSetNotFound, name)
	}
	return p, nil
}

func (e *Engine) newBuilder() *results.Builder {
	return results.NewBuilder(
		results.WithLeafMode(e.config.LeafMode),
		results.WithObserver(e.observer),
	)
}

// Validate evaluates every enabled rule of a rule set against a subject.
// A subject is usually decoded JSON (map[string]any) but may be any struct.
func (e *Engine) Validate(ctx context.Context, ruleSet string, subject interface{}) (*Report, error) {
	p, err := e.program(ruleSet)
	if err != nil {
		return nil, err
	}
	return e.validate(ctx, p, e.newBuilder(), subject)
}

// ValidateBatch validates subjects concurrently against one rule set. Reports
// are returned in subject order. The first error cancels the remaining work.
func (e *Engine) ValidateBatch(ctx context.Context, ruleSet string, subjects []interface{}) ([]*Report, error) {
	p, err := e.program(ruleSet)
	if err != nil {
		return nil, err
	}

	reports := make([]*Report, len(subjects))
	indexes := make(chan int)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(indexes)
		for i := range subjects {
			select {
			case indexes <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(e.config.MaxConcurrency, len(subjects))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			b := e.newBuilder()
			for i := range indexes {
				b.Reset()
				report, err := e.validate(gctx, p, b, subjects[i])
				if err != nil {
					return fmt.Errorf("subject %d: %w", i, err)
				}
				reports[i] = report
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (e *Engine) validate(ctx context.Context, p *program, b *results.Builder, subject interface{}) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := results.AsProtocolError(r)
			if !ok {
				panic(r)
			}
			report, err = nil, perr
		}
	}()

	start := time.Now()
	report = &Report{
		RunID:     uuid.New().String(),
		RuleSet:   p.ruleSet.Name,
		Version:   p.ruleSet.Version,
		SubjectID: subjectID(subject),
		Checked:   make([]string, 0, len(p.rules)),
		StartedAt: start,
		messages:  make(map[string]string),
	}

	ev := &evaluator{
		ctx:     ctx,
		config:  e.config,
		logger:  e.logger,
		prog:    p,
		builder: b,
		subject: subject,
	}

	for _, rule := range p.rules {
		if _, err := ev.evaluateRule(rule); err != nil {
			return nil, err
		}
		report.Checked = append(report.Checked, rule.Property)
		if rule.Message != "" {
			report.messages[rule.Property] = rule.Message
		}
	}

	report.Violations = b.Results()
	report.Duration = time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordValidation(report.RuleSet, report.Valid(), report.Duration)
		for property := range report.Violations {
			e.metrics.RecordViolation(report.RuleSet, property)
		}
	}

	e.logger.Debug("validation complete",
		"rule_set", report.RuleSet,
		"run_id", report.RunID,
		"subject_id", report.SubjectID,
		"valid", report.Valid(),
		"violations", len(report.Violations),
		"duration", report.Duration,
	)

	return report, nil
}
