// Package ast provides Abstract Syntax Tree (AST) definitions for Verity rule sets.
//
// A rule set attaches a condition tree to each validated property. Conditions are
// simple comparisons, function calls, or the logical operators all/any/not. All AST
// nodes preserve source location information for precise error reporting.
//
// # AST Structure
//
//	RuleSet
//	├── Metadata (name, version, description, tags)
//	└── Rules ([]*Rule)
//	    ├── Property (dotted path into the subject)
//	    └── Condition (*ConditionNode)
//	        ├── Simple (operator, value, optional field)
//	        ├── Function (name, arguments, optional field)
//	        └── Logical (all/any/not with children)
//
// # Immutability
//
// AST nodes should be treated as immutable after construction.
// The parser builds the AST once; the linter and the engine only read it.
package ast
