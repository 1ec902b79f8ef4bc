package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/verity/pkg/rules/ast"
	rulesErrors "mercator-hq/verity/pkg/rules/errors"
)

// conditionKeys lists the keys accepted in a condition mapping.
var conditionKeys = []string{"all", "any", "not", "function", "args", "operator", "value", "field"}

// builder constructs AST nodes from intermediate YAML structures.
// It handles type conversion and preserves source locations.
type builder struct {
	sourcePath string
	errors     *rulesErrors.ErrorList
}

// newBuilder creates a new AST builder for the given source file.
func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     rulesErrors.NewErrorList(),
	}
}

func (b *builder) location(node *yaml.Node) ast.Location {
	if node == nil {
		return ast.Location{File: b.sourcePath}
	}
	return ast.Location{File: b.sourcePath, Line: node.Line, Column: node.Column}
}

// buildRuleSet transforms a yamlRuleSet into an ast.RuleSet.
func (b *builder) buildRuleSet(yrs *yamlRuleSet) (*ast.RuleSet, error) {
	rs := &ast.RuleSet{
		Name:        yrs.Name,
		Version:     yrs.Version,
		Description: yrs.Description,
		Tags:        yrs.Tags,
		SourceFile:  b.sourcePath,
		Rules:       make([]*ast.Rule, 0, len(yrs.Rules)),
		Location: ast.Location{
			File:   b.sourcePath,
			Line:   1,
			Column: 1,
		},
	}

	for i := range yrs.Rules {
		rule, err := b.buildRule(&yrs.Rules[i])
		if err != nil {
			b.errors.AddError(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Invalid rule at index %d: %v", i, err),
				ast.Location{File: b.sourcePath, Line: yrs.Rules[i].line, Column: yrs.Rules[i].column})
			continue
		}
		rs.Rules = append(rs.Rules, rule)
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}

	return rs, nil
}

// buildRule transforms a yamlRule into an ast.Rule.
func (b *builder) buildRule(yr *yamlRule) (*ast.Rule, error) {
	rule := &ast.Rule{
		Property:    yr.Property,
		Description: yr.Description,
		Message:     yr.Message,
		Enabled:     true, // Default to true
		Location: ast.Location{
			File:   b.sourcePath,
			Line:   yr.line,
			Column: yr.column,
		},
	}

	if yr.Enabled != nil {
		rule.Enabled = *yr.Enabled
	}

	if yr.Property == "" {
		return nil, fmt.Errorf("missing 'property'")
	}

	if yr.Condition.Kind == 0 {
		return nil, fmt.Errorf("property %q has no condition", yr.Property)
	}

	cond, err := b.buildCondition(&yr.Condition)
	if err != nil {
		return nil, fmt.Errorf("invalid condition for property %q: %w", yr.Property, err)
	}
	rule.Condition = cond

	return rule, nil
}

// buildCondition transforms a condition node into an ast.ConditionNode.
// Conditions can be:
// - Single condition (map with operator and value, or function)
// - Array of conditions (implicit AND)
// - Logical operator (all, any, not with children)
func (b *builder) buildCondition(node *yaml.Node) (*ast.ConditionNode, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return b.buildConditionMap(node)
	case yaml.SequenceNode:
		return b.buildConditionArray(node)
	case yaml.AliasNode:
		return b.buildCondition(node.Alias)
	default:
		return nil, fmt.Errorf("line %d: condition must be a mapping or a list", node.Line)
	}
}

// mappingEntries returns the key/value pairs of a mapping node.
func mappingEntries(node *yaml.Node) map[string]*yaml.Node {
	entries := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		entries[node.Content[i].Value] = node.Content[i+1]
	}
	return entries
}

// buildConditionMap builds a condition from a mapping node.
func (b *builder) buildConditionMap(node *yaml.Node) (*ast.ConditionNode, error) {
	entries := mappingEntries(node)

	for key := range entries {
		if !contains(conditionKeys, key) {
			b.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Unknown condition key %q", key),
				b.location(node),
				rulesErrors.SuggestName(key, conditionKeys))
		}
	}

	if children, ok := entries["all"]; ok {
		return b.buildLogicalCondition(ast.ConditionTypeAll, node, children)
	}
	if children, ok := entries["any"]; ok {
		return b.buildLogicalCondition(ast.ConditionTypeAny, node, children)
	}
	if children, ok := entries["not"]; ok {
		return b.buildLogicalCondition(ast.ConditionTypeNot, node, children)
	}

	if fn, ok := entries["function"]; ok {
		return b.buildFunctionCondition(node, fn, entries)
	}

	return b.buildSimpleCondition(node, entries)
}

// buildSimpleCondition builds a simple comparison condition.
func (b *builder) buildSimpleCondition(node *yaml.Node, entries map[string]*yaml.Node) (*ast.ConditionNode, error) {
	opNode, ok := entries["operator"]
	if !ok || opNode.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: missing or invalid 'operator'", node.Line)
	}

	cond := &ast.ConditionNode{
		Type:     ast.ConditionTypeSimple,
		Operator: ast.Operator(opNode.Value),
		Location: b.location(node),
	}

	if fieldNode, ok := entries["field"]; ok {
		cond.Field = fieldNode.Value
	}

	valueNode, err := b.buildValue(entries["value"])
	if err != nil {
		return nil, fmt.Errorf("line %d: invalid value: %w", node.Line, err)
	}
	cond.Value = valueNode

	return cond, nil
}

// buildLogicalCondition builds a logical operator condition (all/any/not).
// A single mapping under "not" is accepted as a one-element list.
func (b *builder) buildLogicalCondition(condType ast.ConditionType, parent, children *yaml.Node) (*ast.ConditionNode, error) {
	var childNodes []*yaml.Node
	switch {
	case children.Kind == yaml.SequenceNode:
		childNodes = children.Content
	case condType == ast.ConditionTypeNot && children.Kind == yaml.MappingNode:
		childNodes = []*yaml.Node{children}
	default:
		return nil, fmt.Errorf("line %d: %s must have an array of children", children.Line, condType)
	}

	cond := &ast.ConditionNode{
		Type:     condType,
		Children: make([]*ast.ConditionNode, 0, len(childNodes)),
		Location: b.location(parent),
	}

	for i, child := range childNodes {
		childCond, err := b.buildCondition(child)
		if err != nil {
			return nil, fmt.Errorf("invalid child condition at index %d: %w", i, err)
		}
		cond.Children = append(cond.Children, childCond)
	}

	return cond, nil
}

// buildFunctionCondition builds a function call condition.
func (b *builder) buildFunctionCondition(node, fn *yaml.Node, entries map[string]*yaml.Node) (*ast.ConditionNode, error) {
	if fn.Kind != yaml.ScalarNode || fn.Value == "" {
		return nil, fmt.Errorf("line %d: function name must be a string", fn.Line)
	}

	cond := &ast.ConditionNode{
		Type:     ast.ConditionTypeFunction,
		Function: fn.Value,
		Location: b.location(node),
	}

	if fieldNode, ok := entries["field"]; ok {
		cond.Field = fieldNode.Value
	}

	if argsNode, ok := entries["args"]; ok {
		if argsNode.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: function args must be an array", argsNode.Line)
		}
		cond.Args = make([]*ast.ValueNode, 0, len(argsNode.Content))
		for i, arg := range argsNode.Content {
			argNode, err := b.buildValue(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid argument at index %d: %w", i, err)
			}
			cond.Args = append(cond.Args, argNode)
		}
	}

	return cond, nil
}

// buildConditionArray builds an implicit AND of conditions from a sequence.
func (b *builder) buildConditionArray(node *yaml.Node) (*ast.ConditionNode, error) {
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("line %d: empty condition array", node.Line)
	}

	// Single condition - unwrap
	if len(node.Content) == 1 {
		return b.buildCondition(node.Content[0])
	}

	children := make([]*ast.ConditionNode, 0, len(node.Content))
	for i, child := range node.Content {
		childCond, err := b.buildCondition(child)
		if err != nil {
			return nil, fmt.Errorf("invalid condition at index %d: %w", i, err)
		}
		children = append(children, childCond)
	}

	return &ast.ConditionNode{
		Type:     ast.ConditionTypeAll,
		Children: children,
		Location: b.location(node),
	}, nil
}

// buildValue transforms a YAML value node into an ast.ValueNode.
// A missing node is a null value.
func (b *builder) buildValue(node *yaml.Node) (*ast.ValueNode, error) {
	if node == nil {
		return &ast.ValueNode{Type: ast.ValueTypeNull}, nil
	}

	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	value := normalizeValue(raw)

	vn := &ast.ValueNode{
		Value:    value,
		Location: b.location(node),
	}

	switch value.(type) {
	case nil:
		vn.Type = ast.ValueTypeNull
	case string:
		vn.Type = ast.ValueTypeString
	case float64:
		vn.Type = ast.ValueTypeNumber
	case bool:
		vn.Type = ast.ValueTypeBoolean
	case []interface{}:
		vn.Type = ast.ValueTypeArray
	case map[string]interface{}:
		vn.Type = ast.ValueTypeObject
	default:
		return nil, fmt.Errorf("unsupported value type: %T", value)
	}

	return vn, nil
}

// normalizeValue converts all numbers to float64 for consistency, recursively.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = normalizeValue(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, elem := range v {
			out[k] = normalizeValue(elem)
		}
		return out
	default:
		return v
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
