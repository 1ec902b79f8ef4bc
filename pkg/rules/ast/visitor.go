package ast

// Visitor provides an interface for traversing the AST.
// Implement this interface to perform operations on AST nodes
// (validation, analysis, etc.).
type Visitor interface {
	VisitRuleSet(*RuleSet) error
	VisitRule(*Rule) error
	VisitCondition(*ConditionNode) error
	VisitValue(*ValueNode) error
}

// Walk traverses the AST starting from the rule set node and calls the visitor
// for each node. It returns the first error encountered, or nil if traversal completes.
func Walk(rs *RuleSet, visitor Visitor) error {
	if err := visitor.VisitRuleSet(rs); err != nil {
		return err
	}

	for _, rule := range rs.Rules {
		if err := visitor.VisitRule(rule); err != nil {
			return err
		}
		if rule.Condition != nil {
			if err := walkCondition(rule.Condition, visitor); err != nil {
				return err
			}
		}
	}

	return nil
}

// walkCondition recursively walks a condition tree.
func walkCondition(cond *ConditionNode, visitor Visitor) error {
	if err := visitor.VisitCondition(cond); err != nil {
		return err
	}

	if cond.Value != nil {
		if err := visitor.VisitValue(cond.Value); err != nil {
			return err
		}
	}

	for _, arg := range cond.Args {
		if err := visitor.VisitValue(arg); err != nil {
			return err
		}
	}

	for _, child := range cond.Children {
		if err := walkCondition(child, visitor); err != nil {
			return err
		}
	}

	return nil
}
