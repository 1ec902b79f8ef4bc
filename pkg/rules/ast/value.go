package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType represents the type of a literal value in a rule set.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeNumber  ValueType = "number"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeArray   ValueType = "array"
	ValueTypeObject  ValueType = "object"
	ValueTypeNull    ValueType = "null"
)

// ValueNode represents a literal value in the AST (comparison operands, function arguments).
type ValueNode struct {
	Type     ValueType   // Type of the value
	Value    interface{} // Actual value (float64 for numbers, nil for null)
	Location Location    // Source location
}

// IsNull returns true if the value is null.
func (v *ValueNode) IsNull() bool {
	return v == nil || v.Type == ValueTypeNull
}

// String returns the value as it would be written in a rule file.
func (v *ValueNode) String() string {
	if v.IsNull() {
		return "null"
	}
	return FormatValue(v.Value)
}

// FormatValue renders a literal for display in constraints and messages.
// Strings are quoted, numbers use the shortest representation.
func FormatValue(value interface{}) string {
	switch val := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			parts = append(parts, FormatValue(elem))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}
