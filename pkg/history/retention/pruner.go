package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/verity/pkg/history"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep history.
	// 0 keeps history forever.
	RetentionDays int

	// PruneSchedule is a standard cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	PruneSchedule string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
		MaxRecords:    0,
	}
}

// Metrics counts pruned records.
type Metrics interface {
	RecordHistoryPruned(deleted int64)
}

// Pruner enforces retention limits on history records.
type Pruner struct {
	storage   history.Storage
	config    *Config
	logger    *slog.Logger
	metrics   Metrics
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage history.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "history.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// WithMetrics reports every prune, scheduled or manual, to m.
func (p *Pruner) WithMetrics(m Metrics) *Pruner {
	p.metrics = m
	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. Returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return totalDeleted, history.NewRetentionError(p.config.RetentionDays, fmt.Errorf("prune by age: %w", err))
		}
		totalDeleted += deleted
		p.logger.Debug("pruned records by age",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, history.NewRetentionError(p.config.RetentionDays, fmt.Errorf("prune by count: %w", err))
		}
		totalDeleted += deleted
	}

	if p.metrics != nil {
		p.metrics.RecordHistoryPruned(totalDeleted)
	}

	if totalDeleted > 0 {
		p.logger.Info("history pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &history.Query{})
	if err != nil {
		return 0, err
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)
	return p.storage.DeleteOldest(ctx, toDelete)
}

// Start starts scheduled pruning. It stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
