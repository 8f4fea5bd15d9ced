package storage

import "mercator-hq/growth/pkg/growth"

// BackendMemory selects the in-memory backend in place of a SQLite driver.
const BackendMemory = "memory"

// New opens the backend named by cfg.Driver: "sqlite3" or "sqlite" open a
// SQLite database, "memory" returns a MemoryStorage.
func New(cfg *SQLiteConfig) (growth.Storage, error) {
	if cfg != nil && cfg.Driver == BackendMemory {
		return NewMemoryStorage(), nil
	}
	return NewSQLiteStorage(cfg)
}
