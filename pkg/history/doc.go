// Package history keeps an audit trail of validation runs.
//
// Every engine report can be turned into a Record by the recorder package and
// persisted through a Storage backend:
//
//   - storage.MemoryStorage keeps records in memory, for tests and one-off runs
//   - storage.SQLiteStorage persists records with database/sql, using either the
//     cgo driver github.com/mattn/go-sqlite3 ("sqlite3") or the pure-Go driver
//     modernc.org/sqlite ("sqlite")
//
// The retention package bounds the history by age and by record count, on
// demand or on a cron schedule. The export package writes records as JSON
// or CSV.
//
// Records keep each violation's message and failure tree, plus a SHA-256 hash
// of the subject rather than the subject itself.
package history
