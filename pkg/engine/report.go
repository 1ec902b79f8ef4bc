package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"mercator-hq/verity/pkg/results"
)

// Report is the outcome of validating one subject against a rule set.
type Report struct {
	// RunID uniquely identifies this validation run.
	RunID string

	// RuleSet and Version identify the rule set used.
	RuleSet string
	Version string

	// SubjectID identifies the subject, when it carries an id.
	SubjectID string

	// Checked lists the properties evaluated, in rule order.
	Checked []string

	// Violations maps each failing property to its pruned failure tree.
	Violations map[string]*results.Node

	// StartedAt is when validation began; Duration is how long it took.
	StartedAt time.Time
	Duration  time.Duration

	messages map[string]string
}

// Valid reports whether every checked property passed.
func (r *Report) Valid() bool {
	return len(r.Violations) == 0
}

// FailedProperties returns the failing property names, sorted.
func (r *Report) FailedProperties() []string {
	return slices.Sorted(maps.Keys(r.Violations))
}

// Message returns the violation message for a property: the rule's own message
// when it has one, otherwise the rendered failure tree.
func (r *Report) Message(property string) string {
	tree, ok := r.Violations[property]
	if !ok {
		return ""
	}
	if msg := r.messages[property]; msg != "" {
		return fmt.Sprintf("%s (%s)", msg, tree)
	}
	return tree.String()
}

// Messages returns one "property: message" line per failing property, sorted
// by property.
func (r *Report) Messages() []string {
	props := r.FailedProperties()
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p+": "+r.Message(p))
	}
	return out
}

type reportJSON struct {
	RunID      string                   `json:"run_id"`
	RuleSet    string                   `json:"rule_set"`
	Version    string                   `json:"version,omitempty"`
	SubjectID  string                   `json:"subject_id,omitempty"`
	Valid      bool                     `json:"valid"`
	Checked    []string                 `json:"checked"`
	Violations map[string]violationJSON `json:"violations"`
	StartedAt  time.Time                `json:"started_at"`
	DurationMS float64                  `json:"duration_ms"`
}

type violationJSON struct {
	Message string        `json:"message"`
	Tree    *results.Node `json:"tree"`
}

// MarshalJSON renders the report with its validity and violation messages.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:      r.RunID,
		RuleSet:    r.RuleSet,
		Version:    r.Version,
		SubjectID:  r.SubjectID,
		Valid:      r.Valid(),
		Checked:    r.Checked,
		Violations: make(map[string]violationJSON, len(r.Violations)),
		StartedAt:  r.StartedAt,
		DurationMS: float64(r.Duration) / float64(time.Millisecond),
	}
	if out.Checked == nil {
		out.Checked = []string{}
	}
	for p, tree := range r.Violations {
		out.Violations[p] = violationJSON{Message: r.Message(p), Tree: tree}
	}
	return json.Marshal(out)
}
