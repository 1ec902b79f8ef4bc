package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
)

// Config contains configuration for the history recorder.
type Config struct {
	// Enabled enables history recording.
	Enabled bool

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HashSubjects stores a SHA-256 of each subject's JSON form.
	// Default: true
	HashSubjects bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		WriteTimeout: 5 * time.Second,
		HashSubjects: true,
	}
}

// Recorder turns validation reports into history records and stores them.
type Recorder struct {
	storage history.Storage
	config  *Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a recorder writing to storage.
func NewRecorder(storage history.Storage, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "history.recorder"),
		now:     time.Now,
	}
}

// Record converts report into a record stamped with the current time and
// stores it. It returns (nil, nil) when recording is disabled.
func (r *Recorder) Record(ctx context.Context, report *engine.Report, subject any) (*history.Record, error) {
	if !r.config.Enabled {
		return nil, nil
	}
	if report == nil {
		return nil, history.NewRecorderError("", errors.New("report is nil"))
	}

	record, err := FromReport(report)
	if err != nil {
		return nil, history.NewRecorderError(report.RunID, err)
	}
	record.RecordedAt = r.now().UTC()

	if r.config.HashSubjects {
		hash, err := HashSubject(subject)
		if err != nil {
			r.logger.Warn("failed to hash subject",
				"run_id", report.RunID,
				"error", err,
			)
		}
		record.SubjectHash = hash
	}

	if r.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.WriteTimeout)
		defer cancel()
	}

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store history record",
			"record_id", record.ID,
			"run_id", record.RunID,
			"error", err,
		)
		return nil, history.NewRecorderError(report.RunID, err)
	}

	r.logger.Debug("history record stored",
		"record_id", record.ID,
		"run_id", record.RunID,
		"rule_set", record.RuleSet,
		"valid", record.Valid,
	)
	return record, nil
}

// FromReport builds a record from a report. Violations are ordered by
// property name; RecordedAt is the report's start time.
func FromReport(report *engine.Report) (*history.Record, error) {
	record := &history.Record{
		ID:             uuid.New().String(),
		RunID:          report.RunID,
		RuleSet:        report.RuleSet,
		RuleSetVersion: report.Version,
		SubjectID:      report.SubjectID,
		Valid:          report.Valid(),
		Checked:        append([]string(nil), report.Checked...),
		RecordedAt:     report.StartedAt.UTC(),
		Duration:       report.Duration,
	}

	for _, property := range report.FailedProperties() {
		tree, err := json.Marshal(report.Violations[property])
		if err != nil {
			return nil, err
		}
		record.Violations = append(record.Violations, history.Violation{
			Property: property,
			Message:  report.Message(property),
			Tree:     tree,
		})
	}
	return record, nil
}
