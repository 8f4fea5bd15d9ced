// Package rollout governs which strategy version is live.
//
// A strategy type (for example "quote_pricing") has any number of versions,
// at most one of which is active. Versions flagged as baseline are the
// known-good targets for RollbackToBaseline. Nothing is ever deleted, so
// Versions doubles as the audit trail.
package rollout
