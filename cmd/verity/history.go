package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/verity/pkg/cli"
	"mercator-hq/verity/pkg/config"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/history/export"
	"mercator-hq/verity/pkg/history/retention"
)

// historyQueryFlags are the filters shared by list and export.
type historyQueryFlags struct {
	ruleSet   string
	subject   string
	property  string
	valid     bool
	invalid   bool
	since     time.Duration
	timeRange string
	limit     int
	offset    int
	order     string
}

func (f *historyQueryFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.ruleSet, "rule-set", "", "filter by rule set")
	cmd.Flags().StringVar(&f.subject, "subject", "", "filter by subject ID")
	cmd.Flags().StringVar(&f.property, "property", "", "filter by failing property")
	cmd.Flags().BoolVar(&f.valid, "valid", false, "only valid subjects")
	cmd.Flags().BoolVar(&f.invalid, "invalid", false, "only invalid subjects")
	cmd.Flags().DurationVar(&f.since, "since", 0, "only records from the last duration (e.g. 24h)")
	cmd.Flags().StringVar(&f.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	cmd.Flags().IntVar(&f.limit, "limit", defaultLimit, "max results")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&f.order, "order", "desc", "sort order by record time: asc, desc")
	cmd.MarkFlagsMutuallyExclusive("valid", "invalid")
	cmd.MarkFlagsMutuallyExclusive("since", "time-range")
}

// query builds a validated storage query from the flags.
func (f *historyQueryFlags) query(now time.Time) (*history.Query, error) {
	q := &history.Query{
		RuleSet:   f.ruleSet,
		SubjectID: f.subject,
		Property:  f.property,
		Limit:     f.limit,
		Offset:    f.offset,
		SortOrder: f.order,
	}
	switch {
	case f.valid:
		q.Valid = boolPtr(true)
	case f.invalid:
		q.Valid = boolPtr(false)
	}

	if f.since > 0 {
		start := now.Add(-f.since)
		q.StartTime = &start
	}
	if f.timeRange != "" {
		start, end, err := parseTimeRange(f.timeRange)
		if err != nil {
			return nil, cli.NewConfigError("time-range", err.Error())
		}
		q.StartTime, q.EndTime = &start, &end
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.ApplyDefaults()
	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	startStr, endStr, ok := strings.Cut(s, "/")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("time range must be start/end, got %q", s)
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query validation history",
		Long: `Query, prune and export stored validation outcomes.

Subcommands:
  list    - List records with filters
  show    - Show one record with its failure trees
  prune   - Apply retention limits now
  export  - Export records as JSON or CSV

Examples:
  # Invalid subjects of the last day
  verity history list --invalid --since 24h

  # Everything that failed on "email"
  verity history list --property email --format json

  # Export a time range to CSV
  verity history export --format csv --time-range "2026-01-01T00:00:00Z/2026-02-01T00:00:00Z" -o jan.csv`,
	}

	cmd.AddCommand(
		newHistoryListCmd(g),
		newHistoryShowCmd(g),
		newHistoryPruneCmd(g),
		newHistoryExportCmd(g),
	)
	return cmd
}

// withStorage loads configuration and opens the history store for fn.
func withStorage(cmd *cobra.Command, g *globalFlags, fn func(context.Context, *config.Config, history.Storage) error) error {
	cfg, _, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	store, err := openStorage(cfg)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
	return fn(ctx, cfg, store)
}

func newHistoryListCmd(g *globalFlags) *cobra.Command {
	qf := &historyQueryFlags{}
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List validation records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			of, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			return withStorage(cmd, g, func(ctx context.Context, _ *config.Config, store history.Storage) error {
				q, err := qf.query(time.Now())
				if err != nil {
					return err
				}
				records, err := store.Query(ctx, q)
				if err != nil {
					return cli.NewCommandError("history list", err)
				}
				total, err := store.Count(ctx, q)
				if err != nil {
					return cli.NewCommandError("history list", err)
				}
				page := &recordList{Records: records, Total: total, Offset: q.Offset}
				return cli.NewFormatter(of).FormatTo(cmd.OutOrStdout(), page)
			})
		},
	}
	qf.register(cmd, history.DefaultLimit)
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	return cmd
}

type recordList struct {
	Records []*history.Record `json:"records"`
	Total   int64             `json:"total"`
	Offset  int               `json:"offset"`
}

// WriteText prints records as an aligned table.
func (l *recordList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORDED\tRULE SET\tSUBJECT\tVALID\tFAILED")
	for _, r := range l.Records {
		failed := make([]string, len(r.Violations))
		for i, v := range r.Violations {
			failed[i] = v.Property
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			r.ID,
			r.RecordedAt.Local().Format(time.DateTime),
			r.RuleSet,
			orDash(r.SubjectID),
			r.Valid,
			orDash(strings.Join(failed, ",")),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nShowing %d of %d record(s) from offset %d\n", len(l.Records), l.Total, l.Offset)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newHistoryShowCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one validation record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			of, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			return withStorage(cmd, g, func(ctx context.Context, _ *config.Config, store history.Storage) error {
				record, err := store.Get(ctx, args[0])
				if err != nil {
					return cli.NewCommandError("history show", err)
				}
				return cli.NewFormatter(of).FormatTo(cmd.OutOrStdout(), &recordDetail{record})
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	return cmd
}

type recordDetail struct {
	*history.Record
}

// WriteText prints the record fields and each violation with its tree.
func (d *recordDetail) WriteText(w io.Writer) error {
	r := d.Record
	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:         %s\n", r.ID)
	fmt.Fprintf(&sb, "Run:        %s\n", r.RunID)
	fmt.Fprintf(&sb, "Rule set:   %s %s\n", r.RuleSet, r.RuleSetVersion)
	fmt.Fprintf(&sb, "Subject:    %s\n", orDash(r.SubjectID))
	if r.SubjectHash != "" {
		fmt.Fprintf(&sb, "Hash:       %s\n", r.SubjectHash)
	}
	fmt.Fprintf(&sb, "Recorded:   %s\n", r.RecordedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Duration:   %s\n", r.Duration)
	fmt.Fprintf(&sb, "Checked:    %s\n", strings.Join(r.Checked, ", "))
	fmt.Fprintf(&sb, "Valid:      %t\n", r.Valid)
	for _, v := range r.Violations {
		fmt.Fprintf(&sb, "\n✗ %s: %s\n", v.Property, v.Message)
		if len(v.Tree) > 0 {
			fmt.Fprintf(&sb, "    tree: %s\n", v.Tree)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func newHistoryPruneCmd(g *globalFlags) *cobra.Command {
	var days int
	var maxRecords int64

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply retention limits now",
		Long: `Delete records older than the retention period and the oldest records
beyond the record limit. Limits default to history.retention in config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, g, func(ctx context.Context, cfg *config.Config, store history.Storage) error {
				rc := cfg.RetentionConfig()
				if cmd.Flags().Changed("retention-days") {
					rc.RetentionDays = days
				}
				if cmd.Flags().Changed("max-records") {
					rc.MaxRecords = maxRecords
				}
				deleted, err := retention.NewPruner(store, rc, nil).Prune(ctx)
				if err != nil {
					return cli.NewCommandError("history prune", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d record(s)\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "retention-days", 0, "override retention days (0 keeps forever)")
	cmd.Flags().Int64Var(&maxRecords, "max-records", 0, "override maximum record count (0 is unlimited)")
	return cmd
}

func newHistoryExportCmd(g *globalFlags) *cobra.Command {
	qf := &historyQueryFlags{}
	var format, output string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export validation records",
		Long: `Export every record matching the filters as a JSON array or CSV.

Unlike list, export pages through all matching records; --limit sets the
page size.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.New(format, pretty)
			if err != nil {
				return cli.NewConfigError("format", err.Error())
			}
			return withStorage(cmd, g, func(ctx context.Context, _ *config.Config, store history.Storage) error {
				q, err := qf.query(time.Now())
				if err != nil {
					return err
				}
				records, err := collectRecords(ctx, store, q)
				if err != nil {
					return cli.NewCommandError("history export", err)
				}

				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return cli.NewCommandError("history export", err)
					}
					defer f.Close()
					w = f
				}
				if err := exporter.Export(ctx, records, w); err != nil {
					return cli.NewCommandError("history export", err)
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d record(s) to %s\n", len(records), output)
				}
				return nil
			})
		},
	}
	qf.register(cmd, history.MaxLimit)
	cmd.Flags().StringVar(&format, "format", "json", "export format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

// collectRecords pages through every record matching q, starting at its offset.
func collectRecords(ctx context.Context, store history.Storage, q *history.Query) ([]*history.Record, error) {
	var all []*history.Record
	for {
		page, err := store.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < q.Limit {
			return all, nil
		}
		q.Offset += len(page)
	}
}
