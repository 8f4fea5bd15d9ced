// Package storage provides storage backends for the growth engine.
//
// # Storage Backends
//
//   - SQLite via github.com/mattn/go-sqlite3 (driver "sqlite3", default)
//   - SQLite via modernc.org/sqlite (driver "sqlite", no cgo required)
//   - Memory: in-process maps for tests and ephemeral runs
//
// Both SQLite drivers share one schema and one set of statements; only the
// DSN syntax for per-connection pragmas differs.
//
// # Concurrency
//
// Assignment inserts use ON CONFLICT DO NOTHING so that exactly one of
// several racing first-assignment writes lands; the loser sees
// InsertAssignment return false and re-reads the winner.
//
// Strategy activation runs the upsert, the deactivation of sibling versions
// and the read-back of the active row in one transaction. Connections open
// transactions with BEGIN IMMEDIATE, so concurrent activations serialize on
// the SQLite write lock and readers never observe two active versions.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Driver:      storage.DriverPureGo,
//	    Path:        "data/growth.db",
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Timestamps
//
// Timestamps are stored as TEXT in growth.TimestampLayout (UTC, second
// precision) so that range filters compare lexicographically.
package storage
