package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"mercator-hq/verity/pkg/history"
)

// MemoryStorage implements history.Storage with an in-memory map.
type MemoryStorage struct {
	records map[string]*history.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*history.Record),
	}
}

func copyRecord(r *history.Record) *history.Record {
	c := *r
	c.Checked = slices.Clone(r.Checked)
	c.Violations = slices.Clone(r.Violations)
	return &c
}

// Store persists a record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *history.Record) error {
	if record.ID == "" {
		return history.NewStorageError("memory", "store", errEmptyID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Get returns a record by ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return copyRecord(record), nil
}

// Query retrieves records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *history.Query) ([]*history.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	q := *query
	q.ApplyDefaults()

	s.mu.RLock()
	results := make([]*history.Record, 0)
	for _, record := range s.records {
		if matchesQuery(record, &q) {
			results = append(results, copyRecord(record))
		}
	}
	s.mu.RUnlock()

	sortRecords(results, q.SortOrder == "asc")

	if q.Offset >= len(results) {
		return []*history.Record{}, nil
	}
	end := min(q.Offset+q.Limit, len(results))
	return results[q.Offset:end], nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *history.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// DeleteOlderThan removes records recorded before cutoff.
func (s *MemoryStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if record.RecordedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteOldest removes the n oldest records.
func (s *MemoryStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*history.Record, 0, len(s.records))
	for _, record := range s.records {
		all = append(all, record)
	}
	sortRecords(all, true)

	var deleted int64
	for _, record := range all {
		if deleted == n {
			break
		}
		delete(s.records, record.ID)
		deleted++
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*history.Record)
	return nil
}

// Size returns the number of records in storage.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// sortRecords orders records by RecordedAt, ties broken by ID.
func sortRecords(records []*history.Record, ascending bool) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !ascending {
			a, b = b, a
		}
		if a.RecordedAt.Equal(b.RecordedAt) {
			return a.ID < b.ID
		}
		return a.RecordedAt.Before(b.RecordedAt)
	})
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *history.Record, query *history.Query) bool {
	if query.StartTime != nil && record.RecordedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.RecordedAt.After(*query.EndTime) {
		return false
	}
	if query.RuleSet != "" && record.RuleSet != query.RuleSet {
		return false
	}
	if query.SubjectID != "" && record.SubjectID != query.SubjectID {
		return false
	}
	if query.Valid != nil && record.Valid != *query.Valid {
		return false
	}
	if query.Property != "" && !record.HasViolation(query.Property) {
		return false
	}
	return true
}
