package growth

import (
	"context"
	"time"
)

// DefaultVariants is the two-way split used when a caller does not name
// the variants of an experiment.
var DefaultVariants = []string{"A", "B"}

// Default funnel stages compared when the caller leaves them unset.
const (
	DefaultFromStage = "inquiry"
	DefaultToStage   = "ordered"
)

// Funnel bucket granularities. Any bucket other than BucketDay groups by ISO week.
const (
	BucketDay  = "day"
	BucketWeek = "week"
)

// StrategyVersion is one registered version of a strategy type (for example
// a quote pricing strategy). At most one version per type is active.
type StrategyVersion struct {
	StrategyType string    `json:"strategy_type"`
	Version      string    `json:"version"`
	IsActive     bool      `json:"is_active"`
	IsBaseline   bool      `json:"is_baseline"`
	CreatedAt    time.Time `json:"created_at"`
}

// Assignment binds a subject to one variant of an experiment. Once stored it
// never changes.
type Assignment struct {
	ExperimentID    string    `json:"experiment_id"`
	SubjectID       string    `json:"subject_id"`
	Variant         string    `json:"variant"`
	StrategyVersion string    `json:"strategy_version,omitempty"` // empty when untagged
	AssignedAt      time.Time `json:"assigned_at"`

	// NewAssignment is true only for the call that created the row.
	NewAssignment bool `json:"new_assignment"`
}

// FunnelEvent is a single append-only checkpoint in a subject's journey.
// Empty ExperimentID, Variant and StrategyVersion are persisted as NULL.
type FunnelEvent struct {
	ID              int64     `json:"id"`
	SubjectID       string    `json:"subject_id"`
	Stage           string    `json:"stage"`
	ExperimentID    string    `json:"experiment_id,omitempty"`
	Variant         string    `json:"variant,omitempty"`
	StrategyVersion string    `json:"strategy_version,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// StageDay is one distinct (subject, stage, UTC day) observation. Storage
// backends return these so that bucketing can happen independently of the
// database's date functions.
type StageDay struct {
	SubjectID string
	Stage     string
	Day       time.Time
}

// FunnelStats is the time-bucketed stage report produced by funnel analytics.
type FunnelStats struct {
	Days   int    `json:"days"`
	Bucket string `json:"bucket"`

	// Series maps bucket label to stage to distinct subject count.
	Series map[string]map[string]int `json:"series"`

	// Buckets lists the labels of Series in ascending order.
	Buckets []string `json:"buckets"`
}

// VariantStats holds the conversion numbers for a single variant.
type VariantStats struct {
	FromStageUsers int     `json:"from_stage_users"`
	ToStageUsers   int     `json:"to_stage_users"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Comparison is the result of comparing conversion between variants.
type Comparison struct {
	ExperimentID string                  `json:"experiment_id"`
	FromStage    string                  `json:"from_stage"`
	ToStage      string                  `json:"to_stage"`
	Variants     map[string]VariantStats `json:"variants"`

	// Order lists the variant labels in lexicographic order.
	Order []string `json:"order"`

	// PValue is nil when fewer than two variants were observed.
	PValue           *float64 `json:"p_value"`
	SignificantAt005 bool     `json:"significant_at_0_05"`
}

// AssignmentStore is the durable (experiment, subject) → variant table.
type AssignmentStore interface {
	// GetAssignment returns the stored assignment or nil when none exists.
	GetAssignment(ctx context.Context, experimentID, subjectID string) (*Assignment, error)

	// InsertAssignment writes the assignment only if the key is absent.
	// It reports false, without error, when another writer got there first.
	InsertAssignment(ctx context.Context, a *Assignment) (bool, error)
}

// EventStore is the append-only funnel event log.
type EventStore interface {
	// AppendEvent stores the event and returns its surrogate ID.
	AppendEvent(ctx context.Context, e *FunnelEvent) (int64, error)

	// StageDays returns distinct (subject, stage, day) rows for events
	// created at or after since.
	StageDays(ctx context.Context, since time.Time) ([]StageDay, error)

	// DistinctSubjectsByVariant counts distinct subjects per variant that
	// reached stage within the experiment. Events without a variant are ignored.
	DistinctSubjectsByVariant(ctx context.Context, experimentID, stage string) (map[string]int, error)
}

// StrategyStore is the strategy version registry.
type StrategyStore interface {
	// SaveStrategyVersion upserts v and, when v.IsActive is set, deactivates
	// every other version of the type in the same transaction. CreatedAt is
	// only written for new rows. It returns the active version for the type,
	// or nil when none is active.
	SaveStrategyVersion(ctx context.Context, v *StrategyVersion) (*StrategyVersion, error)

	// ActiveStrategy returns the active version for the type or nil.
	ActiveStrategy(ctx context.Context, strategyType string) (*StrategyVersion, error)

	// LatestBaseline returns the most recently created baseline or nil.
	LatestBaseline(ctx context.Context, strategyType string) (*StrategyVersion, error)

	// StrategyVersions lists every version of the type, oldest first.
	StrategyVersions(ctx context.Context, strategyType string) ([]*StrategyVersion, error)
}

// BackendNamer is implemented by stores that report their backend name
// ("sqlite3", "sqlite", "memory") for StorageError.
type BackendNamer interface {
	Backend() string
}

// BackendName returns the backend name of store, or "unknown" when the
// store does not implement BackendNamer.
func BackendName(store any) string {
	if n, ok := store.(BackendNamer); ok {
		return n.Backend()
	}
	return "unknown"
}

// Storage is the complete durable store behind the engine.
// Implementations must be safe for concurrent use.
type Storage interface {
	AssignmentStore
	EventStore
	StrategyStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
