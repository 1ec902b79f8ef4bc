package errors

import (
	"fmt"
	"slices"
	"strings"

	"mercator-hq/verity/pkg/rules/ast"
)

// ErrorType categorizes the type of error encountered during parsing or linting.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax error
	ErrorTypeStructural ErrorType = "structural" // Schema violation (missing/invalid fields)
	ErrorTypeValidation ErrorType = "validation" // Condition validation error
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// Error is a rule file problem. RuleSet and Property are empty when the
// problem is not tied to a rule, for example a YAML syntax error.
type Error struct {
	Type       ErrorType
	RuleSet    string
	Property   string
	Message    string
	Location   ast.Location
	Suggestion string
}

// Error renders the error as
//
//	[validation] age: uses unknown operator "=>"
//	  --> rules/person.yaml:7:11 (rule set person)
//	  = suggestion: Did you mean '>='?
func (e *Error) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] ", e.Type)
	if e.Property != "" {
		sb.WriteString(e.Property + ": ")
	}
	sb.WriteString(e.Message + "\n")

	if e.Location.IsValid() || e.RuleSet != "" {
		sb.WriteString("  -->")
		if e.Location.IsValid() {
			sb.WriteString(" " + e.Location.String())
		}
		if e.RuleSet != "" {
			fmt.Fprintf(&sb, " (rule set %s)", e.RuleSet)
		}
		sb.WriteString("\n")
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "  = suggestion: %s\n", e.Suggestion)
	}
	return sb.String()
}

// ErrorList accumulates errors so a file reports every problem at once.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError adds an error that is not tied to a rule.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// AddErrorWithSuggestion adds an error with a suggested fix.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, location ast.Location, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddPropertyError adds an error found in the rule for property.
func (el *ErrorList) AddPropertyError(errType ErrorType, property, message string, location ast.Location, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Property:   property,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// Merge appends all errors of other to el.
func (el *ErrorList) Merge(other *ErrorList) {
	if other == nil {
		return
	}
	el.Errors = append(el.Errors, other.Errors...)
}

// SetRuleSet stamps name on every error that has no rule set yet.
func (el *ErrorList) SetRuleSet(name string) {
	for _, err := range el.Errors {
		if err.RuleSet == "" {
			err.RuleSet = name
		}
	}
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Properties returns the sorted names of the properties with errors.
func (el *ErrorList) Properties() []string {
	var out []string
	for _, err := range el.Errors {
		if err.Property != "" {
			out = append(out, err.Property)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ForProperty returns the errors reported for one property's rule.
func (el *ErrorList) ForProperty(property string) []*Error {
	var out []*Error
	for _, err := range el.Errors {
		if err.Property == property {
			out = append(out, err)
		}
	}
	return out
}

// Error returns all errors formatted as a single string.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d error(s):\n\n", el.Count())

	for i, err := range el.Errors {
		fmt.Fprintf(&sb, "Error %d:\n", i+1)
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	return slices.ContainsFunc(el.Errors, func(err *Error) bool {
		return err.Type == errType
	})
}
