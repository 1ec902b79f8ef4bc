package history

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Record is the stored outcome of one validation run.
type Record struct {
	// Identity
	ID    string `json:"id"`     // UUID v4
	RunID string `json:"run_id"` // From the engine report

	// What was validated
	RuleSet        string `json:"rule_set"`
	RuleSetVersion string `json:"rule_set_version,omitempty"`
	SubjectID      string `json:"subject_id,omitempty"`
	SubjectHash    string `json:"subject_hash,omitempty"` // SHA-256 of the subject's JSON form

	// Outcome
	Valid      bool        `json:"valid"`
	Checked    []string    `json:"checked,omitempty"`
	Violations []Violation `json:"violations,omitempty"`

	// Timing
	RecordedAt time.Time     `json:"recorded_at"`
	Duration   time.Duration `json:"duration"`
}

// Violation is one failing property of a run.
type Violation struct {
	Property string          `json:"property"`
	Message  string          `json:"message"`
	Tree     json.RawMessage `json:"tree,omitempty"` // JSON form of the failure tree
}

// HasViolation reports whether the record has a violation for the property.
func (r *Record) HasViolation(property string) bool {
	for _, v := range r.Violations {
		if v.Property == property {
			return true
		}
	}
	return false
}

// Query defines filter parameters for querying history records.
type Query struct {
	// Time range, on RecordedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	RuleSet   string `json:"rule_set,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`
	Property  string `json:"property,omitempty"` // Records with a violation on this property
	Valid     *bool  `json:"valid,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting by RecordedAt
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage defines the interface for history storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Get returns a record by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query retrieves records matching the query, newest first by default.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query filters.
	// Pagination fields are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteOlderThan removes records recorded before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the n oldest records.
	DeleteOldest(ctx context.Context, n int64) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter writes history records to a writer in some format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
