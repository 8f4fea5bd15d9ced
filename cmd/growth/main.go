// Growth runs experiments and governs strategy rollouts.
//
// It assigns subjects to experiment variants deterministically, records
// funnel events, compares variant conversion and keeps one active version
// of each strategy with a baseline to roll back to.
//
// Usage:
//
//	# Serve the HTTP API with scheduled reports
//	growth serve --config /etc/growth/config.yaml
//
//	# Assign a subject and record its progress
//	growth assign exp_quote user-1
//	growth event user-1 inquiry --experiment exp_quote
//
//	# Compare conversion between variants
//	growth compare exp_quote --from inquiry --to ordered --format json
//
//	# Roll a strategy back to its baseline
//	growth strategy rollback pricing
package main

func main() {
	Execute()
}
