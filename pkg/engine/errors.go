package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrRuleSetNotFound indicates the requested rule set is not loaded.
	ErrRuleSetNotFound = errors.New("rule set not found")

	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrTooManyRuleSets indicates a load exceeded MaxRuleSets.
	ErrTooManyRuleSets = errors.New("too many rule sets")

	// ErrDuplicateProperty indicates two enabled rules in one rule set share a
	// property. Each property keeps a single violation tree per report.
	ErrDuplicateProperty = errors.New("duplicate rule for property")
)

// ConditionError indicates a leaf constraint could not be evaluated and the
// engine runs in fail-closed mode.
type ConditionError struct {
	RuleSet    string
	Property   string
	Constraint string
	Cause      error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("rule set %s property %s: condition %q: %v", e.RuleSet, e.Property, e.Constraint, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// CompileError indicates a rule could not be compiled into constraints.
type CompileError struct {
	RuleSet  string
	Property string
	Cause    error
}

// Error returns the error message.
func (e *CompileError) Error() string {
	return fmt.Sprintf("rule set %s property %s: %v", e.RuleSet, e.Property, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Cause
}
