package ast

// RuleSet represents the root AST node of a rule file.
// It names a set of property rules that are validated together.
type RuleSet struct {
	Name        string   // Rule set name (referenced by the engine and the API)
	Version     string   // Rule set version
	Description string   // Human-readable description
	Tags        []string // Tags for categorization
	Rules       []*Rule  // Property rules, evaluated in order

	// Source tracking
	SourceFile string   // Path to the rule file
	Location   Location // Source location
}

// Rule attaches a condition tree to a named property.
type Rule struct {
	Property    string         // Property name (dotted path into the subject)
	Description string         // Human-readable description
	Message     string         // Optional message reported when the property fails
	Enabled     bool           // Whether rule is active (default: true)
	Condition   *ConditionNode // Root condition node
	Location    Location       // Source location
}

// IsEnabled returns true if the rule is enabled.
// Rules are enabled by default unless explicitly disabled.
func (r *Rule) IsEnabled() bool {
	return r.Enabled
}

// GetRule returns the rule for the given property, or nil if not found.
func (rs *RuleSet) GetRule(property string) *Rule {
	for _, rule := range rs.Rules {
		if rule.Property == property {
			return rule
		}
	}
	return nil
}

// EnabledRules returns all enabled rules in the rule set.
func (rs *RuleSet) EnabledRules() []*Rule {
	var enabled []*Rule
	for _, rule := range rs.Rules {
		if rule.IsEnabled() {
			enabled = append(enabled, rule)
		}
	}
	return enabled
}

// Properties returns the property names of all rules in order.
func (rs *RuleSet) Properties() []string {
	out := make([]string, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		out = append(out, rule.Property)
	}
	return out
}
