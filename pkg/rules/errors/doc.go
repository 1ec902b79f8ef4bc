// Package errors provides the error types reported while parsing and linting rule files.
//
// Errors carry a category, a source location and an optional suggestion, and are
// accumulated in an ErrorList so a single run reports every problem in a file:
//
//	[structural] Unknown operator "=>"
//	  --> rules/person.yaml:12:11
//	  = suggestion: Did you mean '>='?
package errors
