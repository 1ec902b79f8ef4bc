package engine

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/verity/pkg/constraint"
	"mercator-hq/verity/pkg/results"
	"mercator-hq/verity/pkg/rules/ast"
)

// evaluator drives a results.Builder through one property rule.
type evaluator struct {
	ctx     context.Context
	config  *Config
	logger  *slog.Logger
	prog    *program
	builder *results.Builder
	subject interface{}
	rule    *ast.Rule
}

// evaluateRule evaluates a rule and leaves its failure tree, if any, in the builder.
func (ev *evaluator) evaluateRule(rule *ast.Rule) (bool, error) {
	ev.rule = rule
	ev.builder.SetPropertyName(rule.Property)

	root := rule.Condition
	if ev.config.LeafMode == results.LeafAttached && root.IsLeaf() {
		// Attached leaves need an open parent.
		ev.builder.PushAnd()
		ok, err := ev.evaluate(root)
		if err != nil {
			return false, err
		}
		ev.builder.Pop(ok)
		return ok, nil
	}
	return ev.evaluate(root)
}

func (ev *evaluator) evaluate(cond *ast.ConditionNode) (bool, error) {
	if err := ev.ctx.Err(); err != nil {
		return false, err
	}

	switch cond.Type {
	case ast.ConditionTypeAll:
		return ev.evaluateAll(cond)
	case ast.ConditionTypeAny:
		return ev.evaluateAny(cond)
	case ast.ConditionTypeNot:
		return ev.evaluateNot(cond)
	case ast.ConditionTypeSimple, ast.ConditionTypeFunction:
		return ev.evaluateLeaf(cond)
	default:
		return false, fmt.Errorf("unknown condition type: %q", cond.Type)
	}
}

// evaluateAll evaluates an ALL (AND) condition - all children must hold.
func (ev *evaluator) evaluateAll(cond *ast.ConditionNode) (bool, error) {
	ev.builder.PushAnd()

	result := true
	for _, child := range cond.Children {
		ok, err := ev.evaluate(child)
		if err != nil {
			return false, err
		}
		if !ok {
			result = false
			if ev.config.ShortCircuit {
				break
			}
		}
	}

	ev.builder.Pop(result)
	return result, nil
}

// evaluateAny evaluates an ANY (OR) condition - at least one child must hold.
func (ev *evaluator) evaluateAny(cond *ast.ConditionNode) (bool, error) {
	ev.builder.PushOr()

	result := false
	for _, child := range cond.Children {
		ok, err := ev.evaluate(child)
		if err != nil {
			return false, err
		}
		if ok {
			result = true
			if ev.config.ShortCircuit {
				break
			}
		}
	}

	ev.builder.Pop(result)
	return result, nil
}

// evaluateNot evaluates a NOT condition - the child must not hold.
func (ev *evaluator) evaluateNot(cond *ast.ConditionNode) (bool, error) {
	ev.builder.PushNot()

	ok, err := ev.evaluate(cond.Children[0])
	if err != nil {
		return false, err
	}

	ev.builder.Pop(!ok)
	return !ok, nil
}

func (ev *evaluator) evaluateLeaf(cond *ast.ConditionNode) (bool, error) {
	c, found := ev.prog.leaves[cond]
	if !found {
		return false, fmt.Errorf("condition at %s was not compiled", cond.Location)
	}

	ev.builder.Push(c)
	ok, err := ev.test(c)
	if err != nil {
		return false, err
	}
	if ev.config.LeafMode == results.LeafPopped {
		ev.builder.Pop(ok)
	}
	return ok, nil
}

// test runs a constraint and applies the fail-safe mode to evaluation errors.
func (ev *evaluator) test(c constraint.Constraint) (bool, error) {
	raw, present := extractPath(ev.subject, c.Path())
	value := constraint.Missing()
	if present {
		value = constraint.Present(raw)
	}

	ok, err := c.Test(value)
	if err == nil {
		return ok, nil
	}

	ev.logger.Debug("constraint not evaluable, applying fail-safe mode",
		"property", ev.rule.Property,
		"constraint", c.String(),
		"error", err,
		"fail_safe_mode", ev.config.FailSafeMode,
	)

	switch ev.config.FailSafeMode {
	case FailOpen:
		return true, nil
	case FailClosed:
		return false, &ConditionError{
			RuleSet:    ev.prog.ruleSet.Name,
			Property:   ev.rule.Property,
			Constraint: c.String(),
			Cause:      err,
		}
	default:
		return false, nil
	}
}
