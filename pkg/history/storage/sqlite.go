package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/verity/pkg/history"
)

var errEmptyID = errors.New("record ID is required")

// Driver names accepted by SQLiteConfig.Driver.
const (
	// DriverCGO is github.com/mattn/go-sqlite3. It needs cgo.
	DriverCGO = "sqlite3"

	// DriverPureGo is modernc.org/sqlite. It builds with CGO_ENABLED=0.
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:".
	Path string

	// Driver selects the database/sql driver: "sqlite3" or "sqlite".
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// dsn builds a data source name carrying the busy timeout in each driver's syntax,
// so every pooled connection gets it.
func (c *SQLiteConfig) dsn() string {
	if c.Path == ":memory:" {
		return c.Path
	}
	ms := c.BusyTimeout.Milliseconds()
	if c.Driver == DriverPureGo {
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", c.Path, ms)
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", c.Path, ms)
}

// SQLiteStorage implements history.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and creates the schema if needed.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, history.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q (want %q or %q)", config.Driver, DriverCGO, DriverPureGo))
	}

	logger := slog.Default().With("component", "history.storage.sqlite")

	db, err := sql.Open(config.Driver, config.dsn())
	if err != nil {
		return nil, history.NewStorageError("sqlite", "open", err)
	}

	if config.Path == ":memory:" {
		// Each connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return history.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return history.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return history.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return history.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return history.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record and its violating properties in one transaction.
func (s *SQLiteStorage) Store(ctx context.Context, record *history.Record) error {
	if record.ID == "" {
		return history.NewStorageError("sqlite", "store", errEmptyID)
	}

	checked, err := json.Marshal(record.Checked)
	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}
	violations, err := json.Marshal(record.Violations)
	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO validations (
			id, run_id, rule_set, rule_set_version, subject_id, subject_hash,
			valid, checked, violations, recorded_at, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RunID, record.RuleSet, record.RuleSetVersion, record.SubjectID, record.SubjectHash,
		boolToInt(record.Valid), string(checked), string(violations),
		record.RecordedAt.UnixNano(), int64(record.Duration),
	)
	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}

	for _, v := range record.Violations {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO violations (validation_id, property) VALUES (?, ?)`,
			record.ID, v.Property,
		); err != nil {
			return history.NewStorageError("sqlite", "store", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get returns a record by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*history.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM validations WHERE id = ?", id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, history.NewStorageError("sqlite", "get", err)
	}
	return record, nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *history.Query) ([]*history.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	q := *query
	q.ApplyDefaults()

	whereClause, args := buildWhereClause(&q)

	sqlQuery := "SELECT " + selectColumns + " FROM validations"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY recorded_at %s, id %s LIMIT %d", order, order, q.Limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, history.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*history.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, history.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, history.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *history.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM validations"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, history.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteOlderThan removes records recorded before cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteWhere(ctx, "delete_older_than", "recorded_at < ?", cutoff.UnixNano())
}

// DeleteOldest removes the n oldest records.
func (s *SQLiteStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	return s.deleteWhere(ctx, "delete_oldest",
		"id IN (SELECT id FROM validations ORDER BY recorded_at ASC, id ASC LIMIT ?)", n)
}

func (s *SQLiteStorage) deleteWhere(ctx context.Context, op, where string, args ...interface{}) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, history.NewStorageError("sqlite", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM violations WHERE validation_id IN (SELECT id FROM validations WHERE "+where+")",
		args...,
	); err != nil {
		return 0, history.NewStorageError("sqlite", op, err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM validations WHERE "+where, args...)
	if err != nil {
		return 0, history.NewStorageError("sqlite", op, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, history.NewStorageError("sqlite", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, history.NewStorageError("sqlite", op, err)
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return history.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without "WHERE") and the query arguments.
func buildWhereClause(query *history.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.RuleSet != "" {
		conditions = append(conditions, "rule_set = ?")
		args = append(args, query.RuleSet)
	}
	if query.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, query.SubjectID)
	}
	if query.Valid != nil {
		conditions = append(conditions, "valid = ?")
		args = append(args, boolToInt(*query.Valid))
	}
	if query.Property != "" {
		conditions = append(conditions, "id IN (SELECT validation_id FROM violations WHERE property = ?)")
		args = append(args, query.Property)
	}

	return strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a database row into a Record.
func scanRecord(row scanner) (*history.Record, error) {
	var (
		record                    history.Record
		version, subjectID, hash  sql.NullString
		checked, violations       sql.NullString
		valid                     int
		recordedAt, durationNanos int64
	)

	err := row.Scan(
		&record.ID, &record.RunID, &record.RuleSet, &version, &subjectID, &hash,
		&valid, &checked, &violations, &recordedAt, &durationNanos,
	)
	if err != nil {
		return nil, err
	}

	record.RuleSetVersion = version.String
	record.SubjectID = subjectID.String
	record.SubjectHash = hash.String
	record.Valid = valid != 0
	record.RecordedAt = time.Unix(0, recordedAt).UTC()
	record.Duration = time.Duration(durationNanos)

	if checked.Valid && checked.String != "" && checked.String != "null" {
		if err := json.Unmarshal([]byte(checked.String), &record.Checked); err != nil {
			return nil, fmt.Errorf("decode checked properties: %w", err)
		}
	}
	if violations.Valid && violations.String != "" && violations.String != "null" {
		if err := json.Unmarshal([]byte(violations.String), &record.Violations); err != nil {
			return nil, fmt.Errorf("decode violations: %w", err)
		}
	}

	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
