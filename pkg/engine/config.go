package engine

import (
	"fmt"

	"mercator-hq/verity/pkg/results"
)

// FailSafeMode determines how the engine handles constraints that cannot be
// evaluated, such as a missing path or a value of the wrong type.
type FailSafeMode string

const (
	// FailOpen treats an unevaluable constraint as satisfied.
	FailOpen FailSafeMode = "fail-open"

	// FailClosed aborts the validation with a *ConditionError.
	FailClosed FailSafeMode = "fail-closed"

	// FailSafeDefault treats an unevaluable constraint as failed, so it shows
	// up in the violation tree. This is the default.
	FailSafeDefault FailSafeMode = "fail-safe-default"
)

// Config contains configuration for the validation engine.
type Config struct {
	// FailSafeMode determines how unevaluable constraints are treated.
	// Default: FailSafeDefault.
	FailSafeMode FailSafeMode

	// ShortCircuit stops evaluating a conjunction at its first failing child
	// and a disjunction at its first passing child. When false every child is
	// evaluated so reports list every failing branch.
	// Default: false.
	ShortCircuit bool

	// LeafMode selects the result builder leaf protocol.
	// Default: results.LeafPopped.
	LeafMode results.LeafMode

	// MaxConcurrency bounds the number of goroutines used by ValidateBatch.
	// Default: 8.
	MaxConcurrency int

	// MaxRuleSets is the maximum number of rule sets the engine accepts.
	// Default: 100.
	MaxRuleSets int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		FailSafeMode:   FailSafeDefault,
		ShortCircuit:   false,
		LeafMode:       results.LeafPopped,
		MaxConcurrency: 8,
		MaxRuleSets:    100,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	switch c.FailSafeMode {
	case FailOpen, FailClosed, FailSafeDefault:
	default:
		return fmt.Errorf("%w: invalid fail-safe mode %q", ErrInvalidConfig, c.FailSafeMode)
	}

	switch c.LeafMode {
	case results.LeafPopped, results.LeafAttached:
	default:
		return fmt.Errorf("%w: invalid leaf mode %d", ErrInvalidConfig, c.LeafMode)
	}

	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: max concurrency must be positive", ErrInvalidConfig)
	}
	if c.MaxRuleSets <= 0 {
		return fmt.Errorf("%w: max rule sets must be positive", ErrInvalidConfig)
	}

	return nil
}

// WithFailSafeMode sets the fail-safe mode.
func (c *Config) WithFailSafeMode(mode FailSafeMode) *Config {
	c.FailSafeMode = mode
	return c
}

// WithShortCircuit enables or disables short-circuit evaluation.
func (c *Config) WithShortCircuit(enabled bool) *Config {
	c.ShortCircuit = enabled
	return c
}

// WithLeafMode sets the result builder leaf protocol.
func (c *Config) WithLeafMode(mode results.LeafMode) *Config {
	c.LeafMode = mode
	return c
}

// WithMaxConcurrency sets the batch concurrency limit.
func (c *Config) WithMaxConcurrency(n int) *Config {
	c.MaxConcurrency = n
	return c
}

// WithMaxRuleSets sets the maximum number of rule sets.
func (c *Config) WithMaxRuleSets(n int) *Config {
	c.MaxRuleSets = n
	return c
}

// ParseFailSafeMode converts a configuration string into a FailSafeMode.
func ParseFailSafeMode(s string) (FailSafeMode, error) {
	mode := FailSafeMode(s)
	switch mode {
	case FailOpen, FailClosed, FailSafeDefault:
		return mode, nil
	}
	return "", fmt.Errorf("%w: invalid fail-safe mode %q", ErrInvalidConfig, s)
}

// ParseLeafMode converts "popped" or "attached" into a results.LeafMode.
func ParseLeafMode(s string) (results.LeafMode, error) {
	switch s {
	case "", "popped":
		return results.LeafPopped, nil
	case "attached":
		return results.LeafAttached, nil
	}
	return 0, fmt.Errorf("%w: invalid leaf mode %q", ErrInvalidConfig, s)
}
