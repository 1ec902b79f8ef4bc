package ast

// ConditionType represents the type of condition expression in a rule.
type ConditionType string

const (
	ConditionTypeSimple   ConditionType = "simple"   // operator value
	ConditionTypeAll      ConditionType = "all"      // AND of children
	ConditionTypeAny      ConditionType = "any"      // OR of children
	ConditionTypeNot      ConditionType = "not"      // NOT of a single child
	ConditionTypeFunction ConditionType = "function" // Function call
)

// Operator represents a comparison operator in simple conditions.
type Operator string

const (
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
	OperatorLessThan     Operator = "<"
	OperatorGreaterThan  Operator = ">"
	OperatorLessEqual    Operator = "<="
	OperatorGreaterEqual Operator = ">="
	OperatorContains     Operator = "contains"
	OperatorMatches      Operator = "matches" // Regex match
	OperatorStartsWith   Operator = "starts_with"
	OperatorEndsWith     Operator = "ends_with"
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "not_in"
)

// Operators lists every supported comparison operator.
var Operators = []Operator{
	OperatorEqual, OperatorNotEqual,
	OperatorLessThan, OperatorGreaterThan, OperatorLessEqual, OperatorGreaterEqual,
	OperatorContains, OperatorMatches, OperatorStartsWith, OperatorEndsWith,
	OperatorIn, OperatorNotIn,
}

// IsValid returns true if the operator is supported.
func (o Operator) IsValid() bool {
	for _, op := range Operators {
		if op == o {
			return true
		}
	}
	return false
}

// ConditionNode represents a condition expression in the AST.
// Conditions are simple comparisons (operator value), logical operators
// (all/any/not), or function calls (required(), email(), etc.).
//
// Simple and function conditions read the value at Field; an empty Field
// means the property the rule is attached to.
type ConditionNode struct {
	Type     ConditionType    // Type of condition
	Field    string           // Path override (for Simple and Function conditions)
	Operator Operator         // Comparison operator (for Simple conditions)
	Value    *ValueNode       // Comparison value (for Simple conditions)
	Function string           // Function name (for Function conditions)
	Args     []*ValueNode     // Function arguments (for Function conditions)
	Children []*ConditionNode // Child conditions (for All/Any/Not)
	Location Location         // Source location
}

// IsSimple returns true if this is a simple comparison condition.
func (c *ConditionNode) IsSimple() bool {
	return c.Type == ConditionTypeSimple
}

// IsLogical returns true if this is a logical operator (all/any/not).
func (c *ConditionNode) IsLogical() bool {
	return c.Type == ConditionTypeAll || c.Type == ConditionTypeAny || c.Type == ConditionTypeNot
}

// IsFunction returns true if this is a function call condition.
func (c *ConditionNode) IsFunction() bool {
	return c.Type == ConditionTypeFunction
}

// IsLeaf returns true for conditions evaluated by a single constraint.
func (c *ConditionNode) IsLeaf() bool {
	return c.IsSimple() || c.IsFunction()
}

// Depth returns the nesting depth of the condition tree (1 for a leaf).
func (c *ConditionNode) Depth() int {
	max := 0
	for _, child := range c.Children {
		if d := child.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}
