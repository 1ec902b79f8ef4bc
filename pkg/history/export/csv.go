package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/verity/pkg/history"
)

// CSVExporter exports history records as CSV, one row per record.
type CSVExporter struct {
	// IncludeHeader writes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"id", "run_id", "rule_set", "rule_set_version", "subject_id", "subject_hash",
	"valid", "checked", "failed_properties", "messages", "recorded_at", "duration_ms",
}

// Export writes records to w. List columns are joined with ";" and messages
// with " | ".
func (e *CSVExporter) Export(ctx context.Context, records []*history.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return history.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return history.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(recordToRow(record)); err != nil {
			return history.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return history.NewExportError("csv", len(records), err)
	}
	return nil
}

func recordToRow(record *history.Record) []string {
	properties := make([]string, 0, len(record.Violations))
	messages := make([]string, 0, len(record.Violations))
	for _, v := range record.Violations {
		properties = append(properties, v.Property)
		messages = append(messages, v.Property+": "+v.Message)
	}

	recordedAt := ""
	if !record.RecordedAt.IsZero() {
		recordedAt = record.RecordedAt.Format(time.RFC3339Nano)
	}

	return []string{
		record.ID,
		record.RunID,
		record.RuleSet,
		record.RuleSetVersion,
		record.SubjectID,
		record.SubjectHash,
		strconv.FormatBool(record.Valid),
		strings.Join(record.Checked, ";"),
		strings.Join(properties, ";"),
		strings.Join(messages, " | "),
		recordedAt,
		strconv.FormatFloat(float64(record.Duration)/float64(time.Millisecond), 'f', 3, 64),
	}
}
