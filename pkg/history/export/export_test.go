package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/verity/pkg/history"
)

func testRecords() []*history.Record {
	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	return []*history.Record{
		{
			ID: "r1", RunID: "run-1", RuleSet: "person", RuleSetVersion: "1.0", SubjectID: "alice",
			Valid: true, Checked: []string{"age", "email"}, RecordedAt: at, Duration: 1500 * time.Microsecond,
		},
		{
			ID: "r2", RunID: "run-2", RuleSet: "person", SubjectID: "bob",
			Valid: false, Checked: []string{"age", "email"},
			Violations: []history.Violation{
				{Property: "age", Message: "must be an adult (age >= 18)", Tree: json.RawMessage(`{"kind":"leaf","constraint":"age >= 18"}`)},
				{Property: "email", Message: "email(email)"},
			},
			RecordedAt: at.Add(time.Minute), Duration: 2 * time.Millisecond,
		},
	}
}

// rawJSON compares violation trees by content; the encoder may reformat them.
var rawJSON = cmp.Transformer("rawJSON", func(r json.RawMessage) interface{} {
	var v interface{}
	_ = json.Unmarshal(r, &v)
	return v
})

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		records []*history.Record
		pretty  bool
	}{
		{name: "empty", records: nil},
		{name: "compact", records: testRecords()},
		{name: "pretty", records: testRecords(), pretty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONExporter(tt.pretty).Export(context.Background(), tt.records, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			var got []*history.Record
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
			}
			want := tt.records
			if want == nil {
				want = []*history.Record{}
			}
			if diff := cmp.Diff(want, got, rawJSON); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if tt.pretty != bytes.Contains(buf.Bytes(), []byte("\n  ")) {
				t.Errorf("indentation present = %v, want %v", !tt.pretty, tt.pretty)
			}
		})
	}
}

func TestCSVExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), testRecords(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if diff := cmp.Diff(csvHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	want := []string{
		"r2", "run-2", "person", "", "bob", "",
		"false", "age;email", "age;email",
		"age: must be an adult (age >= 18) | email: email(email)",
		"2026-04-02T09:31:00Z", "2.000",
	}
	if diff := cmp.Diff(want, rows[2]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if rows[1][11] != "1.500" {
		t.Errorf("duration_ms = %q, want 1.500", rows[1][11])
	}
}

func TestCSVExporter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), testRecords()[:1], &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if len(rows) != 1 || rows[0][0] != "r1" {
		t.Errorf("rows = %v, want a single r1 row", rows)
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			exp, err := New(format, false)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			err = exp.Export(ctx, testRecords(), &bytes.Buffer{})
			var eerr *history.ExportError
			if !errors.As(err, &eerr) || !errors.Is(err, context.Canceled) {
				t.Errorf("Export() error = %v, want *ExportError wrapping context.Canceled", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New("CSV", false); err != nil {
		t.Errorf("New(CSV) error = %v", err)
	}
	if _, err := New("xml", false); err == nil {
		t.Error("New(xml) error = nil, want error")
	}
}
