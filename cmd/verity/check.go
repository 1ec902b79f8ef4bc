package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/verity/pkg/cli"
	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history/recorder"
	"mercator-hq/verity/pkg/telemetry/logging"
)

type checkFlags struct {
	rules    string
	ruleSet  string
	format   string
	progress bool
	record   bool
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check [flags] FILE...",
		Short: "Validate documents against a rule set",
		Long: `Validate YAML or JSON documents against a rule set.

Every document in every file is a subject; multi-document YAML files hold
several subjects. Use "-" to read from standard input. For each failing
property the minimal failing rule tree is printed.

Exit status is 0 when every subject is valid, 2 when at least one is
invalid and 1 on errors.

Examples:
  # Validate one document with the only loaded rule set
  verity check --rules person.yaml alice.yaml

  # Pick a rule set from a rules directory
  verity check --rules rules/ --rule-set person people.yaml

  # JSON output for CI/CD, recording outcomes in history
  verity check --rule-set person --format json --record people.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.rules, "rules", "r", "", "rule file or directory (default: rules.path from config)")
	cmd.Flags().StringVarP(&flags.ruleSet, "rule-set", "s", "", "rule set name (optional when exactly one is loaded)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, json")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "show progress on stderr")
	cmd.Flags().BoolVar(&flags.record, "record", false, "store outcomes in validation history")
	return cmd
}

// subject is one decoded document and where it came from.
type subject struct {
	source string
	value  interface{}
}

// checkBatchSize bounds how many subjects are validated between progress updates.
const checkBatchSize = 64

func runCheck(cmd *cobra.Command, g *globalFlags, flags *checkFlags, args []string) error {
	format, err := cli.ParseOutputFormat(flags.format)
	if err != nil {
		return err
	}
	cfg, logger, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	src := newRuleSource(cfg, flags.rules, logger)
	ruleSets, err := src.Load(ctx)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	eng, err := newEngine(cfg, logger, nil)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	if err := eng.Load(ruleSets); err != nil {
		return cli.NewCommandError("check", err)
	}

	name, err := pickRuleSet(eng, flags.ruleSet)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	ctx = logging.WithRuleSet(ctx, name)

	var subjects []subject
	for _, path := range args {
		docs, err := readSubjects(path, cmd.InOrStdin())
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		subjects = append(subjects, docs...)
	}
	if len(subjects) == 0 {
		return cli.NewCommandError("check", errors.New("no documents found"))
	}

	var rec *recorder.Recorder
	if flags.record {
		store, err := openStorage(cfg)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		defer store.Close()
		rec = recorder.NewRecorder(store, cfg.RecorderConfig(), logger)
	}

	var progress cli.ProgressReporter = cli.NopProgress{}
	if flags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "subjects")
	}
	progress.Start(int64(len(subjects)))

	result := &checkResult{RuleSet: name}
	for start := 0; start < len(subjects); start += checkBatchSize {
		batch := subjects[start:min(start+checkBatchSize, len(subjects))]
		values := make([]interface{}, len(batch))
		for i, s := range batch {
			values[i] = s.value
		}

		reports, err := eng.ValidateBatch(ctx, name, values)
		if err != nil {
			progress.Error(err)
			return cli.NewCommandError("check", err)
		}
		for i, report := range reports {
			result.Subjects = append(result.Subjects, subjectResult{Source: batch[i].source, Report: report})
			if rec != nil {
				if _, err := rec.Record(ctx, report, batch[i].value); err != nil {
					logger.WarnContext(ctx, "failed to record validation", "source", batch[i].source, "error", err)
				}
			}
		}
		progress.Update(int64(start + len(batch)))
	}
	progress.Finish()

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if n := result.invalid(); n > 0 {
		return cli.NewInvalidError("check", n)
	}
	return nil
}

// pickRuleSet resolves the rule set to validate with. Without a name, the
// single loaded rule set is used.
func pickRuleSet(eng *engine.Engine, name string) (string, error) {
	if name != "" {
		if _, ok := eng.RuleSet(name); !ok {
			return "", fmt.Errorf("%w: %q", engine.ErrRuleSetNotFound, name)
		}
		return name, nil
	}
	ruleSets := eng.RuleSets()
	switch len(ruleSets) {
	case 0:
		return "", errors.New("no rule sets loaded")
	case 1:
		return ruleSets[0].Name, nil
	}
	names := make([]string, len(ruleSets))
	for i, rs := range ruleSets {
		names[i] = rs.Name
	}
	return "", fmt.Errorf("%d rule sets loaded (%s), choose one with --rule-set", len(names), strings.Join(names, ", "))
}

// readSubjects decodes every YAML or JSON document in path. "-" reads stdin.
// Documents are labelled path#n when a file holds more than one.
func readSubjects(path string, stdin io.Reader) ([]subject, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var values []interface{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if v != nil {
			values = append(values, v)
		}
	}

	label := path
	if path == "-" {
		label = "stdin"
	}
	out := make([]subject, len(values))
	for i, v := range values {
		src := label
		if len(values) > 1 {
			src = fmt.Sprintf("%s#%d", label, i+1)
		}
		out[i] = subject{source: src, value: v}
	}
	return out, nil
}

type subjectResult struct {
	Source string         `json:"source"`
	Report *engine.Report `json:"report"`
}

type checkResult struct {
	RuleSet  string          `json:"rule_set"`
	Subjects []subjectResult `json:"subjects"`
}

func (r *checkResult) invalid() int {
	n := 0
	for _, s := range r.Subjects {
		if !s.Report.Valid() {
			n++
		}
	}
	return n
}

// WriteText prints one line per subject and the failing properties beneath.
func (r *checkResult) WriteText(w io.Writer) error {
	var sb strings.Builder
	for _, s := range r.Subjects {
		label := s.Source
		if s.Report.SubjectID != "" {
			label = fmt.Sprintf("%s (%s)", s.Source, s.Report.SubjectID)
		}
		if s.Report.Valid() {
			fmt.Fprintf(&sb, "✓ %s: valid\n", label)
			continue
		}
		fmt.Fprintf(&sb, "✗ %s: %d violation(s)\n", label, len(s.Report.Violations))
		for _, msg := range s.Report.Messages() {
			fmt.Fprintf(&sb, "    %s\n", msg)
		}
	}
	fmt.Fprintf(&sb, "\nSummary:\n  %d subject(s), %d invalid, rule set %s\n", len(r.Subjects), r.invalid(), r.RuleSet)
	_, err := io.WriteString(w, sb.String())
	return err
}
