package validator

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/verity/pkg/rules/ast"
	rulesErrors "mercator-hq/verity/pkg/rules/errors"
)

func simple(op ast.Operator, value interface{}) *ast.ConditionNode {
	return &ast.ConditionNode{
		Type:     ast.ConditionTypeSimple,
		Operator: op,
		Value:    &ast.ValueNode{Value: value},
	}
}

func ruleSet(rules ...*ast.Rule) *ast.RuleSet {
	return &ast.RuleSet{Name: "person", Version: "1.0.0", Rules: rules}
}

func rule(property string, cond *ast.ConditionNode) *ast.Rule {
	return &ast.Rule{Property: property, Enabled: true, Condition: cond}
}

func nest(depth int) *ast.ConditionNode {
	cond := simple(ast.OperatorGreaterEqual, float64(0))
	for i := 1; i < depth; i++ {
		cond = &ast.ConditionNode{Type: ast.ConditionTypeAll, Children: []*ast.ConditionNode{cond}}
	}
	return cond
}

func TestValidator_Lint(t *testing.T) {
	tests := []struct {
		name        string
		ruleSet     *ast.RuleSet
		wantErrors  int
		wantMessage string
		wantSuggest string
	}{
		{
			name: "valid rule set",
			ruleSet: ruleSet(
				rule("age", &ast.ConditionNode{Type: ast.ConditionTypeAll, Children: []*ast.ConditionNode{
					simple(ast.OperatorGreaterEqual, float64(18)),
					simple(ast.OperatorLessEqual, float64(130)),
				}}),
				rule("email", &ast.ConditionNode{Type: ast.ConditionTypeFunction, Function: "email"}),
				rule("spouse", &ast.ConditionNode{Type: ast.ConditionTypeNot, Children: []*ast.ConditionNode{
					simple(ast.OperatorEqual, "self"),
				}}),
			),
		},
		{
			name:        "missing name",
			ruleSet:     &ast.RuleSet{Rules: []*ast.Rule{rule("age", simple(ast.OperatorGreaterEqual, float64(18)))}},
			wantErrors:  1,
			wantMessage: "Missing required field 'name'",
		},
		{
			name:        "no rules",
			ruleSet:     ruleSet(),
			wantErrors:  1,
			wantMessage: "at least one rule",
		},
		{
			name:        "missing property",
			ruleSet:     ruleSet(rule("", simple(ast.OperatorGreaterEqual, float64(18)))),
			wantErrors:  1,
			wantMessage: "missing required field 'property'",
		},
		{
			name: "duplicate property",
			ruleSet: ruleSet(
				rule("age", simple(ast.OperatorGreaterEqual, float64(18))),
				rule("age", simple(ast.OperatorLessEqual, float64(130))),
			),
			wantErrors:  1,
			wantMessage: "Duplicate rule",
		},
		{
			name:        "no condition",
			ruleSet:     ruleSet(rule("age", nil)),
			wantErrors:  1,
			wantMessage: "has no condition",
		},
		{
			name:        "unknown operator with suggestion",
			ruleSet:     ruleSet(rule("age", simple(ast.Operator("=>"), float64(18)))),
			wantErrors:  1,
			wantMessage: `unknown operator "=>"`,
			wantSuggest: "Did you mean",
		},
		{
			name:        "unknown function with suggestion",
			ruleSet:     ruleSet(rule("email", &ast.ConditionNode{Type: ast.ConditionTypeFunction, Function: "emial"})),
			wantErrors:  1,
			wantMessage: `unknown function "emial"`,
			wantSuggest: "Did you mean 'email'?",
		},
		{
			name: "bad function args",
			ruleSet: ruleSet(rule("nickname", &ast.ConditionNode{Type: ast.ConditionTypeFunction, Function: "length",
				Args: []*ast.ValueNode{{Value: "two"}}})),
			wantErrors:  1,
			wantMessage: "numeric arguments",
		},
		{
			name: "not with two children",
			ruleSet: ruleSet(rule("spouse", &ast.ConditionNode{Type: ast.ConditionTypeNot, Children: []*ast.ConditionNode{
				simple(ast.OperatorEqual, "self"),
				simple(ast.OperatorEqual, "other"),
			}})),
			wantErrors:  1,
			wantMessage: "must be exactly 1",
		},
		{
			name:        "empty any",
			ruleSet:     ruleSet(rule("age", &ast.ConditionNode{Type: ast.ConditionTypeAny})),
			wantErrors:  1,
			wantMessage: "no children",
		},
		{
			name:        "invalid regex",
			ruleSet:     ruleSet(rule("zip", simple(ast.OperatorMatches, "[0-9"))),
			wantErrors:  1,
			wantMessage: "invalid pattern",
		},
		{
			name:        "in requires list",
			ruleSet:     ruleSet(rule("status", simple(ast.OperatorIn, "active"))),
			wantErrors:  1,
			wantMessage: "requires a list value",
		},
		{
			name:        "too deep",
			ruleSet:     ruleSet(rule("age", nest(DefaultMaxDepth+1))),
			wantErrors:  1,
			wantMessage: "maximum nesting depth of 32",
		},
		{
			name:    "max depth allowed",
			ruleSet: ruleSet(rule("age", nest(DefaultMaxDepth))),
		},
		{
			name: "errors accumulate",
			ruleSet: ruleSet(
				rule("a", simple(ast.Operator("~"), 1)),
				rule("b", &ast.ConditionNode{Type: ast.ConditionTypeAll}),
			),
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewValidator().Lint(tt.ruleSet)

			if got := res.Errors.Count(); got != tt.wantErrors {
				t.Fatalf("Lint() error count = %d, want %d\n%s", got, tt.wantErrors, res.Errors.Error())
			}
			if res.Valid() != (tt.wantErrors == 0) {
				t.Errorf("Valid() = %v", res.Valid())
			}
			if tt.wantMessage != "" && !strings.Contains(res.Errors.Errors[0].Message, tt.wantMessage) {
				t.Errorf("message = %q, want substring %q", res.Errors.Errors[0].Message, tt.wantMessage)
			}
			if tt.wantSuggest != "" && !strings.Contains(res.Errors.Errors[0].Suggestion, tt.wantSuggest) {
				t.Errorf("suggestion = %q, want substring %q", res.Errors.Errors[0].Suggestion, tt.wantSuggest)
			}
		})
	}
}

func TestValidator_DisabledRuleWarns(t *testing.T) {
	rs := ruleSet(
		rule("age", simple(ast.OperatorGreaterEqual, float64(18))),
		&ast.Rule{Property: "nickname", Enabled: false, Condition: simple(ast.OperatorNotEqual, "")},
	)

	res := NewValidator().Lint(rs)
	if !res.Valid() {
		t.Fatalf("Lint() unexpected errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %d, want 1", len(res.Warnings))
	}
	if w := res.Warnings[0]; w.Property != "nickname" || !strings.Contains(w.Message, "is disabled") {
		t.Errorf("warning = %q for %q", w.Message, w.Property)
	}
}

func TestValidator_ErrorsNameRuleSetAndProperty(t *testing.T) {
	res := NewValidator().Lint(ruleSet(
		rule("age", simple(ast.Operator("=>"), float64(18))),
		rule("zip", simple(ast.OperatorMatches, "[0-9")),
		rule("age", simple(ast.OperatorLessThan, float64(130))),
	))

	if diff := cmp.Diff([]string{"age", "zip"}, res.Errors.Properties()); diff != "" {
		t.Errorf("Properties() mismatch (-want +got):\n%s", diff)
	}
	if got := len(res.Errors.ForProperty("age")); got != 2 {
		t.Errorf("ForProperty(age) = %d errors, want 2", got)
	}
	for _, e := range res.Errors.Errors {
		if e.RuleSet != "person" {
			t.Errorf("error %q has rule set %q, want person", e.Message, e.RuleSet)
		}
	}
	if msg := res.Errors.Error(); !strings.Contains(msg, `zip: Condition has invalid pattern`) ||
		!strings.Contains(msg, "(rule set person)") {
		t.Errorf("Error() = %s", msg)
	}
}

func TestValidator_WithMaxDepth(t *testing.T) {
	rs := ruleSet(rule("age", nest(4)))

	if err := NewValidator(WithMaxDepth(3)).Validate(rs); err == nil {
		t.Fatal("Validate() expected depth error")
	} else if list, ok := err.(*rulesErrors.ErrorList); !ok || !list.HasErrorType(rulesErrors.ErrorTypeValidation) {
		t.Errorf("Validate() error = %v, want validation ErrorList", err)
	}

	if err := NewValidator(WithMaxDepth(4)).Validate(rs); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if err := NewValidator(WithMaxDepth(0)).Validate(rs); err != nil {
		t.Errorf("Validate() with ignored depth: %v", err)
	}
}
