package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the growth database schema.
const Schema = `
-- Strategy version registry
CREATE TABLE IF NOT EXISTS strategy_versions (
    strategy_type TEXT NOT NULL,
    version TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 0,
    is_baseline INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    PRIMARY KEY (strategy_type, version)
);

-- Experiment assignments, immutable once written
CREATE TABLE IF NOT EXISTS experiment_assignments (
    experiment_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    variant TEXT NOT NULL,
    strategy_version TEXT,
    assigned_at TEXT NOT NULL,
    PRIMARY KEY (experiment_id, subject_id)
);

-- Append-only funnel event log
CREATE TABLE IF NOT EXISTS funnel_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    experiment_id TEXT,
    variant TEXT,
    strategy_version TEXT,
    created_at TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for the analytics queries
CREATE INDEX IF NOT EXISTS idx_funnel_stage_time ON funnel_events(stage, created_at);
CREATE INDEX IF NOT EXISTS idx_funnel_exp_variant ON funnel_events(experiment_id, variant, stage);
CREATE INDEX IF NOT EXISTS idx_strategy_active ON strategy_versions(strategy_type, is_active);
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

const (
	selectAssignment = `
		SELECT experiment_id, subject_id, variant, strategy_version, assigned_at
		FROM experiment_assignments
		WHERE experiment_id = ? AND subject_id = ?`

	insertAssignment = `
		INSERT INTO experiment_assignments (experiment_id, subject_id, variant, strategy_version, assigned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (experiment_id, subject_id) DO NOTHING`

	insertEvent = `
		INSERT INTO funnel_events (subject_id, stage, experiment_id, variant, strategy_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	selectStageDays = `
		SELECT DISTINCT subject_id, stage, substr(created_at, 1, 10)
		FROM funnel_events
		WHERE created_at >= ?`

	selectDistinctByVariant = `
		SELECT variant, COUNT(DISTINCT subject_id)
		FROM funnel_events
		WHERE experiment_id = ? AND stage = ? AND variant IS NOT NULL
		GROUP BY variant`

	upsertStrategyVersion = `
		INSERT INTO strategy_versions (strategy_type, version, is_active, is_baseline, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (strategy_type, version) DO UPDATE SET
			is_active = excluded.is_active,
			is_baseline = excluded.is_baseline`

	deactivateOtherVersions = `
		UPDATE strategy_versions SET is_active = 0
		WHERE strategy_type = ? AND version <> ?`

	strategyColumns = `strategy_type, version, is_active, is_baseline, created_at`

	selectActiveStrategy = `
		SELECT ` + strategyColumns + `
		FROM strategy_versions
		WHERE strategy_type = ? AND is_active = 1
		LIMIT 1`

	selectLatestBaseline = `
		SELECT ` + strategyColumns + `
		FROM strategy_versions
		WHERE strategy_type = ? AND is_baseline = 1
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`

	selectStrategyVersions = `
		SELECT ` + strategyColumns + `
		FROM strategy_versions
		WHERE strategy_type = ?
		ORDER BY created_at ASC, rowid ASC`
)
