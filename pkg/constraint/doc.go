// Package constraint implements the leaf predicates of Verity rules.
//
// A Constraint reads the value at one dotted path of a subject and reports
// whether it holds. Comparisons use the rule language operators
// (==, !=, <, >, <=, >=, contains, matches, starts_with, ends_with, in, not_in);
// calls use the built-in functions required, empty, email, uuid, length and type.
//
// Constraints render themselves for violation messages:
//
//	age >= 18
//	email(email)
//	length(nickname, 2, 20)
//
// Constraints that need a value return an error wrapping ErrMissingValue when
// the path is absent; the engine decides what a missing value means.
package constraint
