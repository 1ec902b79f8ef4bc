package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the history database schema.
// Times are stored as Unix nanoseconds so both SQLite drivers agree on them.
const Schema = `
-- Validation runs
CREATE TABLE IF NOT EXISTS validations (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,

    rule_set TEXT NOT NULL,
    rule_set_version TEXT,
    subject_id TEXT,
    subject_hash TEXT,

    valid INTEGER NOT NULL,
    checked TEXT,
    violations TEXT,

    recorded_at INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL
);

-- Violating properties, one row per failing property of a run
CREATE TABLE IF NOT EXISTS violations (
    validation_id TEXT NOT NULL,
    property TEXT NOT NULL,
    PRIMARY KEY (validation_id, property)
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_validations_recorded_at ON validations(recorded_at);
CREATE INDEX IF NOT EXISTS idx_validations_rule_set ON validations(rule_set);
CREATE INDEX IF NOT EXISTS idx_validations_subject_id ON validations(subject_id);
CREATE INDEX IF NOT EXISTS idx_validations_run_id ON validations(run_id);
CREATE INDEX IF NOT EXISTS idx_violations_property ON violations(property);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const selectColumns = `id, run_id, rule_set, rule_set_version, subject_id, subject_hash,
	valid, checked, violations, recorded_at, duration_ns`
