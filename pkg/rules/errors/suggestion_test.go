package errors

import (
	"strings"
	"testing"

	"mercator-hq/verity/pkg/rules/ast"
)

func TestSuggestName(t *testing.T) {
	valid := []string{"==", "!=", ">=", "<=", "contains", "matches"}

	tests := []struct {
		name    string
		unknown string
		want    string
	}{
		{name: "close match", unknown: "=>", want: "Did you mean"},
		{name: "typo", unknown: "contain", want: "Did you mean 'contains'?"},
		{name: "no close match", unknown: "approximately", want: "Valid values:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestName(tt.unknown, valid)
			if !strings.Contains(got, tt.want) {
				t.Errorf("SuggestName(%q) = %q, want substring %q", tt.unknown, got, tt.want)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestErrorList(t *testing.T) {
	el := NewErrorList()
	if el.ToError() != nil {
		t.Fatal("empty list must convert to nil error")
	}

	loc := ast.Location{File: "rules.yaml", Line: 3, Column: 5}
	el.AddErrorWithSuggestion(ErrorTypeStructural, "Unknown operator", loc, "Did you mean '>='?")
	el.AddError(ErrorTypeSyntax, "bad yaml", ast.Location{})

	if el.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", el.Count())
	}
	if !el.HasErrorType(ErrorTypeSyntax) || el.HasErrorType(ErrorTypeIO) {
		t.Error("HasErrorType() reported wrong types")
	}

	msg := el.Error()
	for _, want := range []string{"Found 2 error(s)", "rules.yaml:3:5", "suggestion: Did you mean '>='?"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() missing %q:\n%s", want, msg)
		}
	}
}

func TestError_PropertyAndRuleSet(t *testing.T) {
	e := &Error{
		Type:       ErrorTypeValidation,
		RuleSet:    "person",
		Property:   "age",
		Message:    `Condition uses unknown operator "=>"`,
		Location:   ast.Location{File: "person.yaml", Line: 7, Column: 11},
		Suggestion: "Did you mean '>='?",
	}
	want := "[validation] age: Condition uses unknown operator \"=>\"\n" +
		"  --> person.yaml:7:11 (rule set person)\n" +
		"  = suggestion: Did you mean '>='?\n"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &Error{Type: ErrorTypeSyntax, Message: "bad yaml"}
	if got := bare.Error(); got != "[syntax] bad yaml\n" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorList_SetRuleSet(t *testing.T) {
	el := NewErrorList()
	el.AddPropertyError(ErrorTypeValidation, "age", "Rule has no condition", ast.Location{}, "")
	el.Add(&Error{Type: ErrorTypeValidation, RuleSet: "other", Message: "kept"})
	el.SetRuleSet("person")

	if el.Errors[0].RuleSet != "person" || el.Errors[1].RuleSet != "other" {
		t.Errorf("rule sets = %q, %q", el.Errors[0].RuleSet, el.Errors[1].RuleSet)
	}
	if got := el.ForProperty("email"); len(got) != 0 {
		t.Errorf("ForProperty(email) = %v, want none", got)
	}
}
