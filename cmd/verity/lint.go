package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/verity/pkg/cli"
	rulesErrors "mercator-hq/verity/pkg/rules/errors"
)

type lintFlags struct {
	strict bool
	format string
}

func newLintCmd(g *globalFlags) *cobra.Command {
	flags := &lintFlags{}

	cmd := &cobra.Command{
		Use:   "lint [flags] [PATH...]",
		Short: "Validate rule files",
		Long: `Validate rule files for syntax and structural errors.

The lint command parses each rule file and checks:
  - YAML syntax
  - Rule set structure (name, unique non-empty properties)
  - Operators, functions and their arguments
  - Regular expressions of "matches" conditions
  - Nesting depth
  - Rule set names unique across files

PATH is a rule file or a directory; the default is rules.path from config.

Examples:
  # Lint the configured rules directory
  verity lint

  # Lint single file, warnings as errors
  verity lint --strict person.yaml

  # JSON output for CI/CD
  verity lint --format json rules/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, g, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.strict, "strict", false, "treat warnings as errors")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, json")
	return cmd
}

// lintIssue is a single error or warning.
type lintIssue struct {
	Property   string `json:"property,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// lintFileResult is the outcome for a single rule file.
type lintFileResult struct {
	File     string      `json:"file"`
	RuleSet  string      `json:"rule_set,omitempty"`
	Valid    bool        `json:"valid"`
	Errors   []lintIssue `json:"errors,omitempty"`
	Warnings []lintIssue `json:"warnings,omitempty"`
}

type lintResult struct {
	Files  []lintFileResult `json:"files"`
	Strict bool             `json:"strict"`
}

func runLint(cmd *cobra.Command, g *globalFlags, flags *lintFlags, args []string) error {
	format, err := cli.ParseOutputFormat(flags.format)
	if err != nil {
		return err
	}
	cfg, _, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{cfg.Rules.Path}
	}

	files, err := ruleFiles(args, cfg.Rules.Extensions)
	if err != nil {
		return cli.NewCommandError("lint", err)
	}
	if len(files) == 0 {
		return cli.NewCommandError("lint", errors.New("no rule files found"))
	}

	p := newParser(cfg)
	v := newLinter(cfg)
	result := &lintResult{Strict: flags.strict}
	seen := make(map[string]string)

	for _, file := range files {
		fr := lintFileResult{File: file, Valid: true}

		rs, err := p.Parse(file)
		if err != nil {
			fr.Valid = false
			fr.Errors = issuesFrom(err)
			result.Files = append(result.Files, fr)
			continue
		}
		fr.RuleSet = rs.Name

		res := v.Lint(rs)
		for _, e := range res.Errors.Errors {
			fr.Errors = append(fr.Errors, issueFrom(e))
		}
		for _, w := range res.Warnings {
			fr.Warnings = append(fr.Warnings, issueFrom(w))
		}
		if prev, dup := seen[rs.Name]; dup && rs.Name != "" {
			fr.Errors = append(fr.Errors, lintIssue{
				Line:    rs.Location.Line,
				Column:  rs.Location.Column,
				Message: fmt.Sprintf("rule set %q is already defined in %s", rs.Name, prev),
				Type:    string(rulesErrors.ErrorTypeStructural),
			})
		} else {
			seen[rs.Name] = file
		}
		fr.Valid = len(fr.Errors) == 0 && (!flags.strict || len(fr.Warnings) == 0)
		result.Files = append(result.Files, fr)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if n := result.invalid(); n > 0 {
		return cli.NewInvalidError("lint", n)
	}
	return nil
}

// ruleFiles expands paths into rule files, walking directories and skipping
// hidden ones. Explicit file arguments are kept whatever their extension.
func ruleFiles(paths, extensions []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if slices.Contains(extensions, strings.ToLower(filepath.Ext(p))) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list rule files: %w", err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func issueFrom(e *rulesErrors.Error) lintIssue {
	return lintIssue{
		Property:   e.Property,
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Message:    e.Message,
		Type:       string(e.Type),
		Suggestion: e.Suggestion,
	}
}

func issuesFrom(err error) []lintIssue {
	var list *rulesErrors.ErrorList
	if errors.As(err, &list) {
		out := make([]lintIssue, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, issueFrom(e))
		}
		return out
	}
	var single *rulesErrors.Error
	if errors.As(err, &single) {
		return []lintIssue{issueFrom(single)}
	}
	return []lintIssue{{Message: err.Error()}}
}

func (r *lintResult) invalid() int {
	n := 0
	for _, f := range r.Files {
		if !f.Valid {
			n++
		}
	}
	return n
}

// WriteText prints a block per file and a summary.
func (r *lintResult) WriteText(w io.Writer) error {
	var sb strings.Builder
	totalErrors, totalWarnings := 0, 0

	for _, f := range r.Files {
		fmt.Fprintf(&sb, "Validating %s...\n", f.File)
		if len(f.Errors) == 0 && len(f.Warnings) == 0 {
			sb.WriteString("✓ Syntax valid\n✓ All rules have valid conditions\n")
		}
		for _, e := range f.Errors {
			sb.WriteString("✗ Error: " + e.text() + "\n")
			totalErrors++
		}
		for _, warn := range f.Warnings {
			sb.WriteString("⚠  Warning: " + warn.text() + "\n")
			totalWarnings++
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Summary:\n")
	fmt.Fprintf(&sb, "  %d file(s), %d error(s), %d warning(s)\n", len(r.Files), totalErrors, totalWarnings)
	if r.Strict && totalWarnings > 0 {
		sb.WriteString("  Strict mode enabled: treating warnings as errors\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (i lintIssue) text() string {
	var sb strings.Builder
	if i.Property != "" {
		sb.WriteString(i.Property + ": ")
	}
	sb.WriteString(i.Message)
	if i.Line > 0 {
		fmt.Fprintf(&sb, " (line %d", i.Line)
		if i.Column > 0 {
			fmt.Fprintf(&sb, ", col %d", i.Column)
		}
		sb.WriteString(")")
	}
	if i.Type != "" {
		fmt.Fprintf(&sb, " [%s]", i.Type)
	}
	if i.Suggestion != "" {
		fmt.Fprintf(&sb, "\n    suggestion: %s", i.Suggestion)
	}
	return sb.String()
}
