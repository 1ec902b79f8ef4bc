package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/history/storage"
	"mercator-hq/verity/pkg/rules/ast"
	"mercator-hq/verity/pkg/rules/parser"
)

const personRules = `
name: person
version: "2.0"
rules:
  - property: age
    message: must be an adult
    condition:
      all:
        - { operator: ">=", value: 18 }
        - { operator: "<", value: 130 }
  - property: email
    condition: { function: email }
`

func validate(t *testing.T, subject map[string]interface{}) *engine.Report {
	t.Helper()
	rs, err := parser.NewParser().ParseBytes([]byte(personRules), "person.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	if err := eng.Load([]*ast.RuleSet{rs}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	report, err := eng.Validate(context.Background(), "person", subject)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return report
}

func TestFromReport(t *testing.T) {
	report := validate(t, map[string]interface{}{"id": "bob", "age": float64(12), "email": "nope"})

	record, err := FromReport(report)
	if err != nil {
		t.Fatalf("FromReport() error = %v", err)
	}

	if _, err := uuid.Parse(record.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", record.ID, err)
	}
	if record.RunID != report.RunID {
		t.Errorf("RunID = %q, want %q", record.RunID, report.RunID)
	}
	if record.RuleSet != "person" || record.RuleSetVersion != "2.0" || record.SubjectID != "bob" {
		t.Errorf("identity = %q/%q/%q, want person/2.0/bob", record.RuleSet, record.RuleSetVersion, record.SubjectID)
	}
	if record.Valid {
		t.Error("Valid = true, want false")
	}

	gotProps := make([]string, 0, len(record.Violations))
	for _, v := range record.Violations {
		gotProps = append(gotProps, v.Property)
	}
	if diff := cmp.Diff([]string{"age", "email"}, gotProps); diff != "" {
		t.Errorf("violation properties mismatch (-want +got):\n%s", diff)
	}

	age := record.Violations[0]
	if !strings.HasPrefix(age.Message, "must be an adult") {
		t.Errorf("age message = %q", age.Message)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(age.Tree, &tree); err != nil {
		t.Fatalf("tree is not JSON: %v", err)
	}
	if tree["kind"] != "and" {
		t.Errorf("tree kind = %v, want and", tree["kind"])
	}
}

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, DefaultConfig(), nil)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	subject := map[string]interface{}{"id": "alice", "age": float64(40), "email": "alice@example.com"}
	record, err := rec.Record(ctx, validate(t, subject), subject)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !record.Valid {
		t.Error("Valid = false, want true")
	}
	if !record.RecordedAt.Equal(fixed) {
		t.Errorf("RecordedAt = %v, want %v", record.RecordedAt, fixed)
	}
	wantHash, _ := HashSubject(subject)
	if record.SubjectHash == "" || record.SubjectHash != wantHash {
		t.Errorf("SubjectHash = %q, want %q", record.SubjectHash, wantHash)
	}

	stored, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(record, stored); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: false}, nil)

	record, err := rec.Record(context.Background(), validate(t, map[string]interface{}{"age": float64(20)}), nil)
	if err != nil || record != nil {
		t.Fatalf("Record() = %v, %v; want nil, nil", record, err)
	}
	if store.Size() != 0 {
		t.Errorf("Size() = %d, want 0", store.Size())
	}
}

type failingStorage struct {
	history.Storage
}

func (failingStorage) Store(context.Context, *history.Record) error {
	return errors.New("disk full")
}

func TestRecorder_StoreError(t *testing.T) {
	rec := NewRecorder(failingStorage{}, &Config{Enabled: true, HashSubjects: false}, nil)
	report := validate(t, map[string]interface{}{"age": float64(20)})

	_, err := rec.Record(context.Background(), report, nil)
	var rerr *history.RecorderError
	if !errors.As(err, &rerr) {
		t.Fatalf("Record() error = %v, want *RecorderError", err)
	}
	if rerr.RunID != report.RunID {
		t.Errorf("RunID = %q, want %q", rerr.RunID, report.RunID)
	}

	if _, err := rec.Record(context.Background(), nil, nil); !errors.As(err, &rerr) {
		t.Errorf("Record(nil) error = %v, want *RecorderError", err)
	}
}

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{name: "empty", content: nil, want: ""},
		{name: "abc", content: []byte("abc"), want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashContent(tt.content); got != tt.want {
				t.Errorf("HashContent() = %q, want %q", got, tt.want)
			}
		})
	}

	big := make([]byte, MaxHashSize+10)
	if HashContent(big) != HashContent(big[:MaxHashSize]) {
		t.Error("content beyond MaxHashSize changed the hash")
	}
}

func TestHashSubject_KeyOrder(t *testing.T) {
	a, err := HashSubject(map[string]interface{}{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("HashSubject() error = %v", err)
	}
	b, _ := HashSubject(map[string]interface{}{"b": 2, "a": 1})
	if a != b {
		t.Errorf("hashes differ for equal maps: %s != %s", a, b)
	}
	if _, err := HashSubject(map[string]interface{}{"f": func() {}}); err == nil {
		t.Error("HashSubject(func) error = nil, want error")
	}
	if h, _ := HashSubject(nil); h != "" {
		t.Errorf("HashSubject(nil) = %q, want empty", h)
	}
}
