package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"mercator-hq/growth/pkg/growth"
)

// Supported database/sql driver names.
const (
	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo selects modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Driver is the database/sql driver name: "sqlite3" or "sqlite".
	// Default: "sqlite3"
	Driver string

	// Path is the database file path. Parent directories are created.
	// Default: "data/growth.db"
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for concurrent readers.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       DriverCGO,
		Path:         "data/growth.db",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements growth.Storage using SQLite.
//
// Every connection opens its transactions with BEGIN IMMEDIATE, so a
// strategy activation takes the write lock before reading and concurrent
// activations queue on the busy timeout instead of failing.
type SQLiteStorage struct {
	db        *sql.DB
	config    *SQLiteConfig
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and verifies the schema version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	cfg := *config
	applySQLiteDefaults(&cfg)

	logger := slog.Default().With("component", "growth.storage.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, growth.NewStorageError(cfg.Driver, "create_dir", err)
		}
	}

	dsn, err := buildDSN(&cfg)
	if err != nil {
		return nil, growth.NewStorageError(cfg.Driver, "open", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, growth.NewStorageError(cfg.Driver, "open", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: &cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

func applySQLiteDefaults(cfg *SQLiteConfig) {
	defaults := DefaultSQLiteConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Path == "" {
		cfg.Path = defaults.Path
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaults.MaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaults.MaxIdleConns
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaults.BusyTimeout
	}
}

// buildDSN renders per-connection pragmas in the syntax each driver expects.
func buildDSN(cfg *SQLiteConfig) (string, error) {
	busyMs := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverCGO:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_txlock=immediate", cfg.Path, busyMs)
		if cfg.WALMode {
			dsn += "&_journal_mode=WAL"
		}
		return dsn, nil
	case DriverPureGo:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_txlock=immediate", cfg.Path, busyMs)
		if cfg.WALMode {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

// initialize creates the schema and verifies the schema version.
func (s *SQLiteStorage) initialize() error {
	backend := s.config.Driver

	if _, err := s.db.Exec(Schema); err != nil {
		return growth.NewStorageError(backend, "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return growth.NewStorageError(backend, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return growth.NewStorageError(backend, "get_schema_version", err)
	}

	if version != SchemaVersion {
		return growth.NewStorageError(backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// GetAssignment returns the stored assignment or nil.
func (s *SQLiteStorage) GetAssignment(ctx context.Context, experimentID, subjectID string) (*growth.Assignment, error) {
	var (
		a          growth.Assignment
		strategy   sql.NullString
		assignedAt string
	)

	err := s.db.QueryRowContext(ctx, selectAssignment, experimentID, subjectID).
		Scan(&a.ExperimentID, &a.SubjectID, &a.Variant, &strategy, &assignedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageError("get_assignment", err)
	}

	a.StrategyVersion = strategy.String
	if a.AssignedAt, err = growth.ParseTimestamp(assignedAt); err != nil {
		return nil, s.storageError("get_assignment", err)
	}

	return &a, nil
}

// InsertAssignment writes the assignment if no row exists for its key.
func (s *SQLiteStorage) InsertAssignment(ctx context.Context, a *growth.Assignment) (bool, error) {
	result, err := s.db.ExecContext(ctx, insertAssignment,
		a.ExperimentID, a.SubjectID, a.Variant,
		nullString(a.StrategyVersion), growth.FormatTimestamp(a.AssignedAt),
	)
	if err != nil {
		return false, s.storageError("insert_assignment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, s.storageError("insert_assignment", err)
	}

	return affected == 1, nil
}

// AppendEvent stores a funnel event and returns its ID.
func (s *SQLiteStorage) AppendEvent(ctx context.Context, e *growth.FunnelEvent) (int64, error) {
	result, err := s.db.ExecContext(ctx, insertEvent,
		e.SubjectID, e.Stage,
		nullString(e.ExperimentID), nullString(e.Variant), nullString(e.StrategyVersion),
		growth.FormatTimestamp(e.CreatedAt),
	)
	if err != nil {
		return 0, s.storageError("append_event", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, s.storageError("append_event", err)
	}

	return id, nil
}

// StageDays returns distinct (subject, stage, day) rows since the cutoff.
func (s *SQLiteStorage) StageDays(ctx context.Context, since time.Time) ([]growth.StageDay, error) {
	rows, err := s.db.QueryContext(ctx, selectStageDays, growth.FormatTimestamp(since))
	if err != nil {
		return nil, s.storageError("stage_days", err)
	}
	defer rows.Close()

	var out []growth.StageDay
	for rows.Next() {
		var (
			hit growth.StageDay
			day string
		)
		if err := rows.Scan(&hit.SubjectID, &hit.Stage, &day); err != nil {
			return nil, s.storageError("stage_days", err)
		}
		if hit.Day, err = time.ParseInLocation(time.DateOnly, day, time.UTC); err != nil {
			return nil, s.storageError("stage_days", err)
		}
		out = append(out, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, s.storageError("stage_days", err)
	}

	return out, nil
}

// DistinctSubjectsByVariant counts distinct subjects per variant at a stage.
func (s *SQLiteStorage) DistinctSubjectsByVariant(ctx context.Context, experimentID, stage string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, selectDistinctByVariant, experimentID, stage)
	if err != nil {
		return nil, s.storageError("distinct_by_variant", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			variant string
			count   int
		)
		if err := rows.Scan(&variant, &count); err != nil {
			return nil, s.storageError("distinct_by_variant", err)
		}
		counts[variant] = count
	}

	if err := rows.Err(); err != nil {
		return nil, s.storageError("distinct_by_variant", err)
	}

	return counts, nil
}

// SaveStrategyVersion upserts a version and enforces the single-active
// invariant inside one transaction.
func (s *SQLiteStorage) SaveStrategyVersion(ctx context.Context, v *growth.StrategyVersion) (active *growth.StrategyVersion, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.storageError("save_strategy_version", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, upsertStrategyVersion,
		v.StrategyType, v.Version, v.IsActive, v.IsBaseline, growth.FormatTimestamp(v.CreatedAt),
	)
	if err != nil {
		return nil, s.storageError("save_strategy_version", err)
	}

	if v.IsActive {
		if _, err = tx.ExecContext(ctx, deactivateOtherVersions, v.StrategyType, v.Version); err != nil {
			return nil, s.storageError("deactivate_versions", err)
		}
	}

	active, err = scanStrategy(tx.QueryRowContext(ctx, selectActiveStrategy, v.StrategyType))
	if err != nil {
		return nil, s.storageError("save_strategy_version", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, s.storageError("commit", err)
	}

	return active, nil
}

// ActiveStrategy returns the active version for the type or nil.
func (s *SQLiteStorage) ActiveStrategy(ctx context.Context, strategyType string) (*growth.StrategyVersion, error) {
	v, err := scanStrategy(s.db.QueryRowContext(ctx, selectActiveStrategy, strategyType))
	if err != nil {
		return nil, s.storageError("active_strategy", err)
	}
	return v, nil
}

// LatestBaseline returns the most recently created baseline or nil.
func (s *SQLiteStorage) LatestBaseline(ctx context.Context, strategyType string) (*growth.StrategyVersion, error) {
	v, err := scanStrategy(s.db.QueryRowContext(ctx, selectLatestBaseline, strategyType))
	if err != nil {
		return nil, s.storageError("latest_baseline", err)
	}
	return v, nil
}

// StrategyVersions lists every version of the type, oldest first.
func (s *SQLiteStorage) StrategyVersions(ctx context.Context, strategyType string) ([]*growth.StrategyVersion, error) {
	rows, err := s.db.QueryContext(ctx, selectStrategyVersions, strategyType)
	if err != nil {
		return nil, s.storageError("strategy_versions", err)
	}
	defer rows.Close()

	versions := []*growth.StrategyVersion{}
	for rows.Next() {
		v, err := scanStrategy(rows)
		if err != nil {
			return nil, s.storageError("strategy_versions", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, s.storageError("strategy_versions", err)
	}

	return versions, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.storageError("ping", err)
	}
	return nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if err := s.db.Close(); err != nil {
			closeErr = s.storageError("close", err)
			return
		}
		s.logger.Info("SQLite storage closed")
	})
	return closeErr
}

// Backend returns the SQL driver name.
func (s *SQLiteStorage) Backend() string {
	return s.config.Driver
}

func (s *SQLiteStorage) storageError(operation string, err error) error {
	return growth.NewStorageError(s.config.Driver, operation, err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStrategy scans one strategy row. A missing row yields nil, nil.
func scanStrategy(row rowScanner) (*growth.StrategyVersion, error) {
	var (
		v         growth.StrategyVersion
		createdAt string
	)

	err := row.Scan(&v.StrategyType, &v.Version, &v.IsActive, &v.IsBaseline, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if v.CreatedAt, err = growth.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}

	return &v, nil
}

// nullString converts empty strings to NULL for optional columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
