package constraint

import (
	"fmt"
	"net/mail"
	"reflect"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FunctionSpec describes a built-in function constraint.
type FunctionSpec struct {
	Name    string
	MinArgs int
	MaxArgs int
	eval    func(v Value, args []interface{}) (bool, error)
}

var functions = map[string]FunctionSpec{
	"required": {Name: "required", eval: evalRequired},
	"empty":    {Name: "empty", eval: evalEmpty},
	"email":    {Name: "email", eval: evalEmail},
	"uuid":     {Name: "uuid", eval: evalUUID},
	"length":   {Name: "length", MinArgs: 1, MaxArgs: 2, eval: evalLength},
	"type":     {Name: "type", MinArgs: 1, MaxArgs: 1, eval: evalType},
}

// FunctionNames returns the names of all built-in functions, sorted.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupFunction returns the spec of a built-in function.
func LookupFunction(name string) (FunctionSpec, bool) {
	spec, ok := functions[name]
	return spec, ok
}

// Call is a built-in function constraint such as required(name) or length(nickname, 2, 20).
type Call struct {
	path string
	spec FunctionSpec
	args []interface{}
}

// NewCall creates a function constraint, checking the function exists and
// the argument count fits.
func NewCall(path, name string, args []interface{}) (*Call, error) {
	spec, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function: %q", name)
	}
	if len(args) < spec.MinArgs || len(args) > spec.MaxArgs {
		return nil, fmt.Errorf("function %s takes %d to %d arguments, got %d", name, spec.MinArgs, spec.MaxArgs, len(args))
	}
	if name == "length" {
		for _, arg := range args {
			if _, err := convertToFloat64(arg); err != nil {
				return nil, fmt.Errorf("function length requires numeric arguments: %w", err)
			}
		}
	}
	return &Call{path: path, spec: spec, args: args}, nil
}

// Path returns the dotted path the call reads.
func (c *Call) Path() string {
	return c.path
}

// Name returns the function name.
func (c *Call) Name() string {
	return c.spec.Name
}

// Test evaluates the function against the value.
func (c *Call) Test(v Value) (bool, error) {
	return c.spec.eval(v, c.args)
}

// String returns "name(path, args...)".
func (c *Call) String() string {
	if len(c.args) == 0 {
		return fmt.Sprintf("%s(%s)", c.spec.Name, c.path)
	}
	return fmt.Sprintf("%s(%s, %s)", c.spec.Name, c.path, formatArgs(c.args))
}

func isEmpty(v Value) bool {
	if !v.Present || v.Raw == nil {
		return true
	}
	rv := reflect.ValueOf(v.Raw)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

func evalRequired(v Value, _ []interface{}) (bool, error) {
	return !isEmpty(v), nil
}

func evalEmpty(v Value, _ []interface{}) (bool, error) {
	return isEmpty(v), nil
}

func requireString(v Value, fn string) (string, error) {
	if !v.Present {
		return "", ErrMissingValue
	}
	s, ok := v.Raw.(string)
	if !ok {
		return "", fmt.Errorf("%s requires a string, got %T", fn, v.Raw)
	}
	return s, nil
}

func evalEmail(v Value, _ []interface{}) (bool, error) {
	s, err := requireString(v, "email")
	if err != nil {
		return false, err
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false, nil
	}
	return addr.Address == s, nil
}

func evalUUID(v Value, _ []interface{}) (bool, error) {
	s, err := requireString(v, "uuid")
	if err != nil {
		return false, err
	}
	_, err = uuid.Parse(s)
	return err == nil, nil
}

func evalLength(v Value, args []interface{}) (bool, error) {
	if !v.Present {
		return false, ErrMissingValue
	}

	var n int
	if s, ok := v.Raw.(string); ok {
		n = utf8.RuneCountInString(s)
	} else {
		rv := reflect.ValueOf(v.Raw)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array:
			n = rv.Len()
		default:
			return false, fmt.Errorf("length requires a string, list or object, got %T", v.Raw)
		}
	}

	lo, _ := convertToFloat64(args[0])
	if float64(n) < lo {
		return false, nil
	}
	if len(args) > 1 {
		hi, _ := convertToFloat64(args[1])
		if float64(n) > hi {
			return false, nil
		}
	}
	return true, nil
}

// TypeOf names the rule language type of a decoded value.
func TypeOf(raw interface{}) string {
	if raw == nil {
		return "null"
	}
	if _, err := convertToFloat64(raw); err == nil {
		return "number"
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return fmt.Sprintf("%T", raw)
}

func evalType(v Value, args []interface{}) (bool, error) {
	if !v.Present {
		return false, ErrMissingValue
	}
	want, ok := args[0].(string)
	if !ok {
		return false, fmt.Errorf("type requires a string argument, got %T", args[0])
	}
	return TypeOf(v.Raw) == want, nil
}
