// Package parser reads Verity rule files into the AST defined by package ast.
//
// A rule file is YAML:
//
//	name: person
//	version: "1.0"
//	rules:
//	  - property: age
//	    condition:
//	      all:
//	        - { operator: ">=", value: 18 }
//	        - { operator: "<", value: 130 }
//	  - property: email
//	    condition: { function: email }
//	  - property: spouse
//	    condition:
//	      not: { operator: "==", value: self }
//
// A list of conditions is an implicit "all". Simple and function conditions read
// the rule's property unless they name another path with "field".
//
// Numbers are always decoded as float64. Every AST node carries the line and column
// of the YAML node it was built from.
package parser
