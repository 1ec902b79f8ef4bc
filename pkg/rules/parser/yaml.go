package parser

import (
	"gopkg.in/yaml.v3"
)

// yamlRuleSet represents the intermediate structure for parsing YAML rule sets.
// It matches the YAML structure before transformation to AST.
type yamlRuleSet struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Description string     `yaml:"description"`
	Tags        []string   `yaml:"tags"`
	Rules       []yamlRule `yaml:"rules"`
}

// yamlRule represents an intermediate rule structure.
// The condition is kept as a raw node so line numbers survive to the AST.
type yamlRule struct {
	Property    string    `yaml:"property"`
	Description string    `yaml:"description"`
	Message     string    `yaml:"message"`
	Enabled     *bool     `yaml:"enabled"` // Pointer to distinguish unset vs false
	Condition   yaml.Node `yaml:"condition"`

	// Internal tracking
	line   int
	column int
}

// UnmarshalYAML records the rule's position before decoding its fields.
func (r *yamlRule) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlRule
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = yamlRule(p)
	r.line = node.Line
	r.column = node.Column
	return nil
}

// parseYAMLBytes parses YAML bytes into the intermediate structure.
func parseYAMLBytes(data []byte) (*yamlRuleSet, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var rs yamlRuleSet
	if err := node.Decode(&rs); err != nil {
		return nil, err
	}

	return &rs, nil
}
