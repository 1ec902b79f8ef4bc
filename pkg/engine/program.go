package engine

import (
	"fmt"

	"mercator-hq/verity/pkg/constraint"
	"mercator-hq/verity/pkg/rules/ast"
)

// program is a rule set with every leaf condition compiled to a constraint.
type program struct {
	ruleSet *ast.RuleSet
	rules   []*ast.Rule
	leaves  map[*ast.ConditionNode]constraint.Constraint
}

func compileRuleSet(rs *ast.RuleSet) (*program, error) {
	p := &program{
		ruleSet: rs,
		rules:   rs.EnabledRules(),
		leaves:  make(map[*ast.ConditionNode]constraint.Constraint),
	}

	seen := make(map[string]bool, len(p.rules))
	for _, rule := range p.rules {
		if seen[rule.Property] {
			return nil, &CompileError{RuleSet: rs.Name, Property: rule.Property, Cause: ErrDuplicateProperty}
		}
		seen[rule.Property] = true
		if rule.Condition == nil {
			return nil, &CompileError{RuleSet: rs.Name, Property: rule.Property, Cause: fmt.Errorf("rule has no condition")}
		}
		if err := p.compileCondition(rule.Condition, rule.Property); err != nil {
			return nil, &CompileError{RuleSet: rs.Name, Property: rule.Property, Cause: err}
		}
	}

	return p, nil
}

func (p *program) compileCondition(cond *ast.ConditionNode, property string) error {
	switch cond.Type {
	case ast.ConditionTypeAll, ast.ConditionTypeAny:
		if len(cond.Children) == 0 {
			return fmt.Errorf("%s condition has no children", cond.Type)
		}
	case ast.ConditionTypeNot:
		if len(cond.Children) != 1 {
			return fmt.Errorf("not condition must have exactly one child, got %d", len(cond.Children))
		}
	case ast.ConditionTypeSimple, ast.ConditionTypeFunction:
		c, err := constraint.Compile(cond, property)
		if err != nil {
			return err
		}
		p.leaves[cond] = c
		return nil
	default:
		return fmt.Errorf("unknown condition type: %q", cond.Type)
	}

	for _, child := range cond.Children {
		if err := p.compileCondition(child, property); err != nil {
			return err
		}
	}
	return nil
}
