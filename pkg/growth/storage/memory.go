package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/growth/pkg/growth"
)

// MemoryStorage implements growth.Storage in process memory.
// Every write is serialized behind a single mutex, which gives the same
// insert-if-absent and single-active guarantees as the SQLite backend.
// It is intended for tests and ephemeral runs; nothing survives a restart.
type MemoryStorage struct {
	mu          sync.RWMutex
	assignments map[assignmentKey]growth.Assignment
	events      []growth.FunnelEvent
	strategies  map[string][]*strategyRow
	nextEventID int64
	nextSeq     int64
}

type assignmentKey struct {
	experimentID string
	subjectID    string
}

// strategyRow keeps insertion order for baseline tie-breaks.
type strategyRow struct {
	version growth.StrategyVersion
	seq     int64
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		assignments: make(map[assignmentKey]growth.Assignment),
		strategies:  make(map[string][]*strategyRow),
	}
}

// GetAssignment returns the stored assignment or nil.
func (s *MemoryStorage) GetAssignment(ctx context.Context, experimentID, subjectID string) (*growth.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[assignmentKey{experimentID, subjectID}]
	if !ok {
		return nil, nil
	}
	a.NewAssignment = false
	return &a, nil
}

// InsertAssignment writes the assignment if no row exists for its key.
func (s *MemoryStorage) InsertAssignment(ctx context.Context, a *growth.Assignment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assignmentKey{a.ExperimentID, a.SubjectID}
	if _, exists := s.assignments[key]; exists {
		return false, nil
	}

	stored := *a
	stored.AssignedAt = growth.Truncate(a.AssignedAt)
	stored.NewAssignment = false
	s.assignments[key] = stored
	return true, nil
}

// AppendEvent stores a funnel event and returns its ID.
func (s *MemoryStorage) AppendEvent(ctx context.Context, e *growth.FunnelEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	stored := *e
	stored.ID = s.nextEventID
	stored.CreatedAt = growth.Truncate(e.CreatedAt)
	s.events = append(s.events, stored)
	return stored.ID, nil
}

// StageDays returns distinct (subject, stage, day) rows since the cutoff.
func (s *MemoryStorage) StageDays(ctx context.Context, since time.Time) ([]growth.StageDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since = growth.Truncate(since)
	seen := make(map[growth.StageDay]struct{})
	var out []growth.StageDay
	for _, e := range s.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		y, m, d := e.CreatedAt.Date()
		hit := growth.StageDay{
			SubjectID: e.SubjectID,
			Stage:     e.Stage,
			Day:       time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		}
		if _, dup := seen[hit]; dup {
			continue
		}
		seen[hit] = struct{}{}
		out = append(out, hit)
	}
	return out, nil
}

// DistinctSubjectsByVariant counts distinct subjects per variant at a stage.
func (s *MemoryStorage) DistinctSubjectsByVariant(ctx context.Context, experimentID, stage string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make(map[string]map[string]struct{})
	for _, e := range s.events {
		if e.ExperimentID != experimentID || e.Stage != stage || e.Variant == "" {
			continue
		}
		if subjects[e.Variant] == nil {
			subjects[e.Variant] = make(map[string]struct{})
		}
		subjects[e.Variant][e.SubjectID] = struct{}{}
	}

	counts := make(map[string]int, len(subjects))
	for variant, set := range subjects {
		counts[variant] = len(set)
	}
	return counts, nil
}

// SaveStrategyVersion upserts a version and enforces the single-active invariant.
func (s *MemoryStorage) SaveStrategyVersion(ctx context.Context, v *growth.StrategyVersion) (*growth.StrategyVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.strategies[v.StrategyType]
	var target *strategyRow
	for _, row := range rows {
		if row.version.Version == v.Version {
			target = row
			break
		}
	}

	if target == nil {
		s.nextSeq++
		target = &strategyRow{
			version: growth.StrategyVersion{
				StrategyType: v.StrategyType,
				Version:      v.Version,
				CreatedAt:    growth.Truncate(v.CreatedAt),
			},
			seq: s.nextSeq,
		}
		s.strategies[v.StrategyType] = append(rows, target)
	}
	target.version.IsActive = v.IsActive
	target.version.IsBaseline = v.IsBaseline

	if v.IsActive {
		for _, row := range s.strategies[v.StrategyType] {
			if row != target {
				row.version.IsActive = false
			}
		}
	}

	return s.activeLocked(v.StrategyType), nil
}

// ActiveStrategy returns the active version for the type or nil.
func (s *MemoryStorage) ActiveStrategy(ctx context.Context, strategyType string) (*growth.StrategyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeLocked(strategyType), nil
}

// LatestBaseline returns the most recently created baseline or nil.
func (s *MemoryStorage) LatestBaseline(ctx context.Context, strategyType string) (*growth.StrategyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *strategyRow
	for _, row := range s.strategies[strategyType] {
		if !row.version.IsBaseline {
			continue
		}
		if best == nil || !row.version.CreatedAt.Before(best.version.CreatedAt) {
			best = row
		}
	}
	if best == nil {
		return nil, nil
	}
	v := best.version
	return &v, nil
}

// StrategyVersions lists every version of the type, oldest first.
func (s *MemoryStorage) StrategyVersions(ctx context.Context, strategyType string) ([]*growth.StrategyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := append([]*strategyRow(nil), s.strategies[strategyType]...)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].version.CreatedAt.Equal(rows[j].version.CreatedAt) {
			return rows[i].version.CreatedAt.Before(rows[j].version.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	versions := make([]*growth.StrategyVersion, 0, len(rows))
	for _, row := range rows {
		v := row.version
		versions = append(versions, &v)
	}
	return versions, nil
}

// Backend returns "memory".
func (s *MemoryStorage) Backend() string {
	return BackendMemory
}

// Ping always succeeds for the memory backend.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) activeLocked(strategyType string) *growth.StrategyVersion {
	for _, row := range s.strategies[strategyType] {
		if row.version.IsActive {
			v := row.version
			return &v
		}
	}
	return nil
}
