package constraint

import (
	"errors"
	"testing"
)

func TestCall_Test(t *testing.T) {
	tests := []struct {
		name      string
		function  string
		args      []interface{}
		value     Value
		wantMatch bool
		wantError bool
	}{
		{name: "required present", function: "required", value: Present("bob"), wantMatch: true},
		{name: "required empty string", function: "required", value: Present(""), wantMatch: false},
		{name: "required missing", function: "required", value: Missing(), wantMatch: false},
		{name: "required nil", function: "required", value: Present(nil), wantMatch: false},
		{name: "empty missing", function: "empty", value: Missing(), wantMatch: true},
		{name: "empty list", function: "empty", value: Present([]interface{}{}), wantMatch: true},
		{name: "empty number", function: "empty", value: Present(0), wantMatch: false},
		{name: "email valid", function: "email", value: Present("ada@example.com"), wantMatch: true},
		{name: "email with display name", function: "email", value: Present("Ada <ada@example.com>"), wantMatch: false},
		{name: "email invalid", function: "email", value: Present("not-an-email"), wantMatch: false},
		{name: "email non-string", function: "email", value: Present(42), wantError: true},
		{name: "uuid valid", function: "uuid", value: Present("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), wantMatch: true},
		{name: "uuid invalid", function: "uuid", value: Present("1234"), wantMatch: false},
		{name: "length in range", function: "length", args: []interface{}{float64(2), float64(5)}, value: Present("héllo"), wantMatch: true},
		{name: "length too long", function: "length", args: []interface{}{float64(2), float64(3)}, value: Present("hello"), wantMatch: false},
		{name: "length minimum only", function: "length", args: []interface{}{float64(1)}, value: Present([]interface{}{1}), wantMatch: true},
		{name: "length of number", function: "length", args: []interface{}{float64(1)}, value: Present(3), wantError: true},
		{name: "type number", function: "type", args: []interface{}{"number"}, value: Present(3), wantMatch: true},
		{name: "type object", function: "type", args: []interface{}{"object"}, value: Present(map[string]interface{}{}), wantMatch: true},
		{name: "type mismatch", function: "type", args: []interface{}{"string"}, value: Present(true), wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCall("field", tt.function, tt.args)
			if err != nil {
				t.Fatalf("NewCall() error = %v", err)
			}
			matched, err := c.Test(tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("Test() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && matched != tt.wantMatch {
				t.Errorf("Test() matched = %v, want %v", matched, tt.wantMatch)
			}
		})
	}
}

func TestCall_MissingValue(t *testing.T) {
	for _, fn := range []string{"email", "uuid"} {
		c, err := NewCall("field", fn, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Test(Missing()); !errors.Is(err, ErrMissingValue) {
			t.Errorf("%s: Test(Missing()) error = %v, want ErrMissingValue", fn, err)
		}
	}
}

func TestNewCall_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		function string
		args     []interface{}
	}{
		{name: "unknown function", function: "palindrome"},
		{name: "too many args", function: "required", args: []interface{}{1}},
		{name: "missing args", function: "length"},
		{name: "non-numeric length", function: "length", args: []interface{}{"two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCall("x", tt.function, tt.args); err == nil {
				t.Error("NewCall() expected error")
			}
		})
	}
}

func TestFunctionNames(t *testing.T) {
	names := FunctionNames()
	want := []string{"email", "empty", "length", "required", "type", "uuid"}
	if len(names) != len(want) {
		t.Fatalf("FunctionNames() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("FunctionNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
