package validator

import (
	"fmt"
	"regexp"

	"mercator-hq/verity/pkg/constraint"
	"mercator-hq/verity/pkg/rules/ast"
	rulesErrors "mercator-hq/verity/pkg/rules/errors"
)

// DefaultMaxDepth is the default maximum condition nesting depth.
const DefaultMaxDepth = 32

// Result holds the findings of a lint run.
type Result struct {
	Errors   *rulesErrors.ErrorList
	Warnings []*rulesErrors.Error
}

// Valid reports whether the rule set has no errors. Warnings do not count.
func (r *Result) Valid() bool {
	return !r.Errors.HasErrors()
}

// Validator checks rule sets for structural problems before they reach the engine.
type Validator struct {
	maxDepth int
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxDepth sets the maximum condition nesting depth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(v *Validator) {
		if depth > 0 {
			v.maxDepth = depth
		}
	}
}

// NewValidator creates a validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate lints a rule set and returns its errors as an *ErrorList, or nil.
func (v *Validator) Validate(rs *ast.RuleSet) error {
	return v.Lint(rs).Errors.ToError()
}

// Lint runs every check on a rule set and collects all findings.
func (v *Validator) Lint(rs *ast.RuleSet) *Result {
	l := &linter{
		maxDepth: v.maxDepth,
		ruleSet:  rs.Name,
		result:   &Result{Errors: rulesErrors.NewErrorList()},
	}
	l.lintRuleSet(rs)
	l.result.Errors.SetRuleSet(rs.Name)
	return l.result
}

type linter struct {
	maxDepth int
	ruleSet  string
	result   *Result
}

func (l *linter) errorf(property string, loc ast.Location, format string, args ...interface{}) {
	l.result.Errors.AddPropertyError(rulesErrors.ErrorTypeValidation, property, fmt.Sprintf(format, args...), loc, "")
}

func (l *linter) warnf(property string, loc ast.Location, format string, args ...interface{}) {
	l.result.Warnings = append(l.result.Warnings, &rulesErrors.Error{
		Type:     rulesErrors.ErrorTypeValidation,
		RuleSet:  l.ruleSet,
		Property: property,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func (l *linter) lintRuleSet(rs *ast.RuleSet) {
	if rs.Name == "" {
		l.result.Errors.AddErrorWithSuggestion(
			rulesErrors.ErrorTypeStructural,
			"Missing required field 'name'",
			rs.Location,
			`Add a rule set name, e.g. name: "person"`,
		)
	}

	if len(rs.Rules) == 0 {
		l.result.Errors.AddErrorWithSuggestion(
			rulesErrors.ErrorTypeStructural,
			"Rule set must have at least one rule",
			rs.Location,
			"Add a 'rules' section with at least one property rule",
		)
	}

	seen := make(map[string]bool)
	for i, rule := range rs.Rules {
		if rule.Property == "" {
			l.result.Errors.AddErrorWithSuggestion(
				rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Rule at index %d missing required field 'property'", i),
				rule.Location,
				"Name the subject property this rule validates",
			)
		} else if seen[rule.Property] {
			l.errorf(rule.Property, rule.Location, "Duplicate rule for this property")
		}
		seen[rule.Property] = true

		if !rule.IsEnabled() {
			l.warnf(rule.Property, rule.Location, "Rule is disabled")
		}

		if rule.Condition == nil {
			l.errorf(rule.Property, rule.Location, "Rule has no condition")
			continue
		}
		l.lintCondition(rule.Condition, rule.Property, 1)
	}
}

func (l *linter) lintCondition(cond *ast.ConditionNode, property string, depth int) {
	if depth > l.maxDepth {
		l.errorf(property, cond.Location, "Condition exceeds maximum nesting depth of %d", l.maxDepth)
		return
	}

	switch cond.Type {
	case ast.ConditionTypeAll, ast.ConditionTypeAny:
		if len(cond.Children) == 0 {
			l.errorf(property, cond.Location, "%q condition has no children", cond.Type)
		}
		for _, child := range cond.Children {
			l.lintCondition(child, property, depth+1)
		}

	case ast.ConditionTypeNot:
		if len(cond.Children) != 1 {
			l.errorf(property, cond.Location, "'not' condition has %d children (must be exactly 1)", len(cond.Children))
		}
		for _, child := range cond.Children {
			l.lintCondition(child, property, depth+1)
		}

	case ast.ConditionTypeSimple:
		l.lintSimple(cond, property)

	case ast.ConditionTypeFunction:
		l.lintFunction(cond, property)

	default:
		l.errorf(property, cond.Location, "Unknown condition type %q", cond.Type)
	}
}

func (l *linter) lintSimple(cond *ast.ConditionNode, property string) {
	if !cond.Operator.IsValid() {
		valid := make([]string, 0, len(ast.Operators))
		for _, op := range ast.Operators {
			valid = append(valid, string(op))
		}
		l.result.Errors.AddPropertyError(
			rulesErrors.ErrorTypeValidation,
			property,
			fmt.Sprintf("Condition uses unknown operator %q", cond.Operator),
			cond.Location,
			rulesErrors.SuggestName(string(cond.Operator), valid),
		)
		return
	}

	if cond.Value == nil {
		l.errorf(property, cond.Location, "Condition is missing 'value'")
		return
	}

	switch cond.Operator {
	case ast.OperatorMatches:
		pattern, ok := cond.Value.Value.(string)
		if !ok {
			l.errorf(property, cond.Value.Location, "'matches' requires a string pattern")
			return
		}
		if _, err := regexp.Compile(pattern); err != nil {
			l.errorf(property, cond.Value.Location, "Condition has invalid pattern %q: %v", pattern, err)
		}

	case ast.OperatorIn, ast.OperatorNotIn:
		if _, ok := cond.Value.Value.([]interface{}); !ok {
			l.result.Errors.AddPropertyError(
				rulesErrors.ErrorTypeValidation,
				property,
				fmt.Sprintf("%q requires a list value", cond.Operator),
				cond.Value.Location,
				"Use a YAML sequence, e.g. value: [a, b]",
			)
		}
	}
}

func (l *linter) lintFunction(cond *ast.ConditionNode, property string) {
	if _, ok := constraint.LookupFunction(cond.Function); !ok {
		l.result.Errors.AddPropertyError(
			rulesErrors.ErrorTypeValidation,
			property,
			fmt.Sprintf("Condition uses unknown function %q", cond.Function),
			cond.Location,
			rulesErrors.SuggestName(cond.Function, constraint.FunctionNames()),
		)
		return
	}

	// Argument checks live with the function definitions.
	if _, err := constraint.Compile(cond, property); err != nil {
		l.errorf(property, cond.Location, "%v", err)
	}
}
