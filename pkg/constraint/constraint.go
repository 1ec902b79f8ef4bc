package constraint

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/verity/pkg/rules/ast"
)

// ErrMissingValue is returned by constraints that need a value when the
// subject has nothing at the constraint's path.
var ErrMissingValue = errors.New("value not present")

// Value is the input of a constraint: the raw value found at the
// constraint's path and whether the path exists in the subject.
type Value struct {
	Raw     interface{}
	Present bool
}

// Present wraps a value that exists in the subject.
func Present(raw interface{}) Value {
	return Value{Raw: raw, Present: true}
}

// Missing is the value of a path that does not exist in the subject.
func Missing() Value {
	return Value{}
}

// Constraint is a leaf predicate over the value at one path of a subject.
// Its String form is what appears in violation trees.
type Constraint interface {
	// Path returns the dotted path the constraint reads.
	Path() string

	// Test reports whether the value satisfies the constraint.
	Test(v Value) (bool, error)

	// String returns the display form, e.g. "age >= 18".
	String() string
}

// Comparison compares the value at a path with a literal using an operator.
type Comparison struct {
	path     string
	op       ast.Operator
	expected interface{}
	re       *regexp.Regexp
}

// NewComparison creates a comparison constraint. Patterns for the matches
// operator are compiled here so evaluation never fails on a bad regex.
func NewComparison(path string, op ast.Operator, expected interface{}) (*Comparison, error) {
	if !op.IsValid() {
		return nil, fmt.Errorf("unknown operator: %q", op)
	}

	c := &Comparison{path: path, op: op, expected: expected}

	if op == ast.OperatorMatches {
		pattern, ok := expected.(string)
		if !ok {
			return nil, fmt.Errorf("matches operator requires string pattern, got %T", expected)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		c.re = re
	}

	return c, nil
}

// Path returns the dotted path the comparison reads.
func (c *Comparison) Path() string {
	return c.path
}

// Operator returns the comparison operator.
func (c *Comparison) Operator() ast.Operator {
	return c.op
}

// Expected returns the literal the value is compared with.
func (c *Comparison) Expected() interface{} {
	return c.expected
}

// Test evaluates the comparison. A missing value yields ErrMissingValue.
func (c *Comparison) Test(v Value) (bool, error) {
	if !v.Present {
		return false, fmt.Errorf("%s: %w", c.path, ErrMissingValue)
	}
	return evaluateOperator(c.op, v.Raw, c.expected, c.re)
}

// String returns "path op value".
func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.path, c.op, ast.FormatValue(c.expected))
}

// Func is a constraint backed by a Go function. It lets callers plug custom
// leaf predicates into the engine and into tests.
type Func struct {
	path string
	name string
	fn   func(Value) (bool, error)
}

// NewFunc creates a function-backed constraint displayed as "name(path)".
func NewFunc(path, name string, fn func(Value) (bool, error)) *Func {
	return &Func{path: path, name: name, fn: fn}
}

// Path returns the dotted path the constraint reads.
func (f *Func) Path() string {
	return f.path
}

// Test calls the underlying function.
func (f *Func) Test(v Value) (bool, error) {
	return f.fn(v)
}

// String returns "name(path)".
func (f *Func) String() string {
	return fmt.Sprintf("%s(%s)", f.name, f.path)
}

// Compile turns a leaf condition into a constraint. property is the path used
// when the condition does not name its own field.
func Compile(cond *ast.ConditionNode, property string) (Constraint, error) {
	path := property
	if cond.Field != "" {
		path = cond.Field
	}

	switch cond.Type {
	case ast.ConditionTypeSimple:
		var expected interface{}
		if cond.Value != nil {
			expected = cond.Value.Value
		}
		return NewComparison(path, cond.Operator, expected)

	case ast.ConditionTypeFunction:
		args := make([]interface{}, 0, len(cond.Args))
		for _, arg := range cond.Args {
			args = append(args, arg.Value)
		}
		return NewCall(path, cond.Function, args)

	default:
		return nil, fmt.Errorf("condition type %q is not a leaf", cond.Type)
	}
}

// formatArgs renders function arguments for display.
func formatArgs(args []interface{}) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, ast.FormatValue(arg))
	}
	return strings.Join(parts, ", ")
}
