// Package metrics provides Prometheus metrics collection for the growth engine.
//
// # Metrics Categories
//
//   - Experiment Metrics: assignments, funnel events, conversion rates, p-values
//   - Strategy Metrics: activations, registrations and rollbacks
//   - Operation Metrics: latency and failures of every engine operation
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordAssignment("exp_quote", "B", true)
//	collector.RecordOperation("assign_variant", time.Millisecond, "")
//
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality Management
//
// Experiment IDs, variants, stages and strategy types are caller-supplied.
// Once the configured number of distinct label sets is reached, new values
// are recorded under the "other" label.
package metrics
