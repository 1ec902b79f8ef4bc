package constraint

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"mercator-hq/verity/pkg/rules/ast"
)

// evaluateOperator evaluates an operator comparison between actual and expected values.
// re is the precompiled pattern for the matches operator.
func evaluateOperator(op ast.Operator, actual, expected interface{}, re *regexp.Regexp) (bool, error) {
	switch op {
	case ast.OperatorEqual:
		return evaluateEqual(actual, expected), nil

	case ast.OperatorNotEqual:
		return !evaluateEqual(actual, expected), nil

	case ast.OperatorLessThan:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a < e, err

	case ast.OperatorGreaterThan:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a > e, err

	case ast.OperatorLessEqual:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a <= e, err

	case ast.OperatorGreaterEqual:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a >= e, err

	case ast.OperatorContains:
		return evaluateContains(actual, expected)

	case ast.OperatorMatches:
		return evaluateMatches(actual, re)

	case ast.OperatorStartsWith:
		return strings.HasPrefix(toString(actual), toString(expected)), nil

	case ast.OperatorEndsWith:
		return strings.HasSuffix(toString(actual), toString(expected)), nil

	case ast.OperatorIn:
		return evaluateIn(actual, expected)

	case ast.OperatorNotIn:
		in, err := evaluateIn(actual, expected)
		return !in && err == nil, err

	default:
		return false, fmt.Errorf("unknown operator: %q", op)
	}
}

// evaluateEqual checks if two values are equal.
func evaluateEqual(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	// Try numeric comparison first (handles int vs float64)
	actualNum, actualErr := convertToFloat64(actual)
	expectedNum, expectedErr := convertToFloat64(expected)
	if actualErr == nil && expectedErr == nil {
		return actualNum == expectedNum
	}

	return reflect.DeepEqual(actual, expected)
}

// evaluateContains checks if actual contains expected (substring or element).
func evaluateContains(actual, expected interface{}) (bool, error) {
	if s, ok := actual.(string); ok {
		return strings.Contains(s, toString(expected)), nil
	}
	return containsElement(actual, expected)
}

// evaluateMatches checks if actual matches the compiled pattern.
func evaluateMatches(actual interface{}, re *regexp.Regexp) (bool, error) {
	if re == nil {
		return false, fmt.Errorf("matches operator has no compiled pattern")
	}
	return re.MatchString(toString(actual)), nil
}

// evaluateIn checks if actual is in the expected list.
func evaluateIn(actual, expected interface{}) (bool, error) {
	expectedVal := reflect.ValueOf(expected)
	if expectedVal.Kind() != reflect.Slice && expectedVal.Kind() != reflect.Array {
		return false, fmt.Errorf("in operator requires slice or array for expected, got %s", expectedVal.Kind())
	}

	for i := 0; i < expectedVal.Len(); i++ {
		if evaluateEqual(actual, expectedVal.Index(i).Interface()) {
			return true, nil
		}
	}

	return false, nil
}

// containsElement checks if a slice/array contains an element.
func containsElement(slice, elem interface{}) (bool, error) {
	sliceVal := reflect.ValueOf(slice)
	if sliceVal.Kind() != reflect.Slice && sliceVal.Kind() != reflect.Array {
		return false, fmt.Errorf("contains operator on non-string requires slice or array, got %s", sliceVal.Kind())
	}

	for i := 0; i < sliceVal.Len(); i++ {
		if evaluateEqual(sliceVal.Index(i).Interface(), elem) {
			return true, nil
		}
	}

	return false, nil
}

// toNumeric converts values to float64 for numeric comparison.
func toNumeric(actual, expected interface{}) (float64, float64, error) {
	actualNum, err := convertToFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value to number: %w", err)
	}

	expectedNum, err := convertToFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value to number: %w", err)
	}

	return actualNum, expectedNum, nil
}

// convertToFloat64 converts a value to float64.
func convertToFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// toString converts a value to string.
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}
