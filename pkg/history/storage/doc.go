// Package storage provides history.Storage backends.
//
// MemoryStorage keeps records in a map and suits tests and short-lived
// processes. SQLiteStorage persists records in a SQLite database through
// either the cgo driver (github.com/mattn/go-sqlite3, driver name "sqlite3")
// or the pure Go driver (modernc.org/sqlite, driver name "sqlite").
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//		Path:   "data/history.db",
//		Driver: storage.DriverPureGo,
//		WALMode: true,
//	})
package storage
