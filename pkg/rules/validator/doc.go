// Package validator lints parsed rule sets.
//
// Linting catches mistakes the YAML parser cannot: missing names, duplicate
// property rules, unknown operators and functions (with "did you mean"
// suggestions), malformed logical conditions, bad regular expressions,
// non-list values for in/not_in and excessive nesting. All findings are
// collected in one pass so authors can fix a file at once.
//
// Disabled rules are reported as warnings; they never fail linting.
//
//	v := validator.NewValidator(validator.WithMaxDepth(16))
//	res := v.Lint(ruleSet)
//	if !res.Valid() {
//	    fmt.Println(res.Errors)
//	}
package validator
