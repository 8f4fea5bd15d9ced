// Package growth defines the domain model of the experimentation and
// rollout-governance engine: experiment assignments, funnel events and
// strategy versions, together with the storage contracts that persist them.
//
// # Architecture
//
// The engine is split into small packages that depend only on this one:
//
//  1. storage - SQLite and in-memory implementations of Storage
//  2. assignment - deterministic, persistent variant bucketing
//  3. funnel - event recording, time-bucketed stage counts, variant comparison
//  4. rollout - strategy version activation and rollback to baseline
//  5. service - the facade combining the three engines behind one API
//  6. report - scheduled recomputation of comparisons for dashboards
//
// # Invariants
//
//   - (experiment_id, subject_id) has at most one assignment, and it never changes
//   - a strategy type has at most one active version at any time
//   - funnel events are append-only and never dropped
//
// # Errors
//
// Structurally wrong arguments return a *ValidationError (errors.Is
// ErrInvalidInput). Backend failures return a *StorageError (errors.Is
// ErrStorageUnavailable). Absent results, such as no active strategy, are
// reported as nil values with a nil error.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path: "data/growth.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	svc := service.New(store, nil)
//	a, err := svc.AssignVariant(ctx, assignment.Request{
//	    ExperimentID: "exp_quote",
//	    SubjectID:    "session-42",
//	})
package growth
