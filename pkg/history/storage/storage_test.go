package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/verity/pkg/history"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecords() []*history.Record {
	return []*history.Record{
		{
			ID: "r1", RunID: "run-1", RuleSet: "person", RuleSetVersion: "1.0", SubjectID: "alice",
			Valid: true, Checked: []string{"age", "email"},
			RecordedAt: base, Duration: 2 * time.Millisecond,
		},
		{
			ID: "r2", RunID: "run-2", RuleSet: "person", SubjectID: "bob",
			Valid: false, Checked: []string{"age", "email"},
			Violations: []history.Violation{{Property: "age", Message: "must be an adult"}},
			RecordedAt: base.Add(time.Hour), Duration: 3 * time.Millisecond,
		},
		{
			ID: "r3", RunID: "run-3", RuleSet: "vehicle", SubjectID: "car-1",
			Valid: false, Checked: []string{"wheels", "plate"},
			Violations: []history.Violation{
				{Property: "wheels", Message: "wheels: violated"},
				{Property: "plate", Message: "plate: violated"},
			},
			RecordedAt: base.Add(2 * time.Hour), Duration: time.Millisecond,
		},
		{
			ID: "r4", RunID: "run-4", RuleSet: "person", SubjectID: "alice",
			Valid: false, Checked: []string{"age"},
			Violations: []history.Violation{{Property: "email", Message: "email: violated"}},
			RecordedAt: base.Add(3 * time.Hour), Duration: time.Millisecond,
		},
	}
}

type backend struct {
	name string
	open func(t *testing.T) history.Storage
}

func backends() []backend {
	openSQLite := func(driver string) func(t *testing.T) history.Storage {
		return func(t *testing.T) history.Storage {
			t.Helper()
			cfg := DefaultSQLiteConfig()
			cfg.Driver = driver
			cfg.Path = filepath.Join(t.TempDir(), "history.db")
			s, err := NewSQLiteStorage(cfg)
			if err != nil {
				t.Fatalf("NewSQLiteStorage(%s) error = %v", driver, err)
			}
			return s
		}
	}
	return []backend{
		{name: "memory", open: func(t *testing.T) history.Storage { return NewMemoryStorage() }},
		{name: "sqlite3", open: openSQLite(DriverCGO)},
		{name: "sqlite", open: openSQLite(DriverPureGo)},
	}
}

func seed(t *testing.T, s history.Storage) {
	t.Helper()
	for _, r := range testRecords() {
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store(%s) error = %v", r.ID, err)
		}
	}
}

func ids(records []*history.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStorage_StoreAndGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			seed(t, s)

			got, err := s.Get(context.Background(), "r3")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			want := testRecords()[2]
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}

			if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, history.ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			var serr *history.StorageError
			if err := s.Store(context.Background(), &history.Record{}); !errors.As(err, &serr) {
				t.Errorf("Store(empty ID) error = %v, want *StorageError", err)
			}
		})
	}
}

func TestStorage_Query(t *testing.T) {
	valid := true
	invalid := false
	start := base.Add(time.Hour)
	end := base.Add(2 * time.Hour)

	tests := []struct {
		name  string
		query history.Query
		want  []string
		count int64
	}{
		{name: "all newest first", query: history.Query{}, want: []string{"r4", "r3", "r2", "r1"}, count: 4},
		{name: "ascending", query: history.Query{SortOrder: "ASC"}, want: []string{"r1", "r2", "r3", "r4"}, count: 4},
		{name: "rule set", query: history.Query{RuleSet: "person"}, want: []string{"r4", "r2", "r1"}, count: 3},
		{name: "subject", query: history.Query{SubjectID: "alice"}, want: []string{"r4", "r1"}, count: 2},
		{name: "valid", query: history.Query{Valid: &valid}, want: []string{"r1"}, count: 1},
		{name: "invalid", query: history.Query{Valid: &invalid}, want: []string{"r4", "r3", "r2"}, count: 3},
		{name: "property", query: history.Query{Property: "age"}, want: []string{"r2"}, count: 1},
		{name: "property on multi-violation run", query: history.Query{Property: "plate"}, want: []string{"r3"}, count: 1},
		{name: "time range", query: history.Query{StartTime: &start, EndTime: &end}, want: []string{"r3", "r2"}, count: 2},
		{name: "limit", query: history.Query{Limit: 2}, want: []string{"r4", "r3"}, count: 4},
		{name: "offset", query: history.Query{Limit: 2, Offset: 3}, want: []string{"r1"}, count: 4},
		{name: "no match", query: history.Query{RuleSet: "nope"}, want: []string{}, count: 0},
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			seed(t, s)

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					q := tt.query
					got, err := s.Query(context.Background(), &q)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
						t.Errorf("Query() ids mismatch (-want +got):\n%s", diff)
					}

					count, err := s.Count(context.Background(), &q)
					if err != nil {
						t.Fatalf("Count() error = %v", err)
					}
					if count != tt.count {
						t.Errorf("Count() = %d, want %d", count, tt.count)
					}
				})
			}
		})
	}
}

func TestStorage_QueryInvalid(t *testing.T) {
	tests := []struct {
		name  string
		query history.Query
	}{
		{name: "negative limit", query: history.Query{Limit: -1}},
		{name: "limit too large", query: history.Query{Limit: history.MaxLimit + 1}},
		{name: "negative offset", query: history.Query{Offset: -1}},
		{name: "bad sort order", query: history.Query{SortOrder: "sideways"}},
		{name: "inverted range", query: history.Query{StartTime: ptr(base.Add(time.Hour)), EndTime: ptr(base)}},
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					var qerr *history.QueryError
					if _, err := s.Query(context.Background(), &tt.query); !errors.As(err, &qerr) {
						t.Errorf("Query() error = %v, want *QueryError", err)
					}
				})
			}
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer s.Close()
			seed(t, s)

			deleted, err := s.DeleteOlderThan(ctx, base.Add(90*time.Minute))
			if err != nil {
				t.Fatalf("DeleteOlderThan() error = %v", err)
			}
			if deleted != 2 {
				t.Errorf("DeleteOlderThan() = %d, want 2", deleted)
			}

			deleted, err = s.DeleteOldest(ctx, 1)
			if err != nil {
				t.Fatalf("DeleteOldest() error = %v", err)
			}
			if deleted != 1 {
				t.Errorf("DeleteOldest() = %d, want 1", deleted)
			}

			got, err := s.Query(ctx, &history.Query{})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if diff := cmp.Diff([]string{"r4"}, ids(got)); diff != "" {
				t.Errorf("remaining ids mismatch (-want +got):\n%s", diff)
			}

			// Violation index rows of deleted runs must not match.
			n, err := s.Count(ctx, &history.Query{Property: "plate"})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 0 {
				t.Errorf("Count(property=plate) = %d, want 0", n)
			}

			if deleted, _ := s.DeleteOldest(ctx, 0); deleted != 0 {
				t.Errorf("DeleteOldest(0) = %d, want 0", deleted)
			}
		})
	}
}

func TestMemoryStorage_Isolation(t *testing.T) {
	s := NewMemoryStorage()
	r := testRecords()[1]
	if err := s.Store(context.Background(), r); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	r.Violations[0].Property = "mutated"

	got, _ := s.Get(context.Background(), "r2")
	if got.Violations[0].Property != "age" {
		t.Errorf("stored record changed through caller's slice: %q", got.Violations[0].Property)
	}
	if s.Size() != 1 {
		t.Errorf("Size() = %d, want 1", s.Size())
	}
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	s, err := NewSQLiteStorage(&SQLiteConfig{Path: ":memory:", Driver: DriverPureGo})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	defer s.Close()
	seed(t, s)

	n, err := s.Count(context.Background(), &history.Query{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Count() = %d, want 4", n)
	}
}

func TestSQLiteStorage_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStorage(&SQLiteConfig{Path: ":memory:", Driver: "postgres"})
	var serr *history.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("NewSQLiteStorage() error = %v, want *StorageError", err)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	cfg := &SQLiteConfig{Path: path, Driver: DriverPureGo, MaxOpenConns: 2, MaxIdleConns: 1, WALMode: true, BusyTimeout: time.Second}

	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	seed(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	got, err := s.Get(context.Background(), "r2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.RecordedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("RecordedAt = %v, want %v", got.RecordedAt, base.Add(time.Hour))
	}
}

func ptr[T any](v T) *T { return &v }
