// Governor is a budget-aware operational governor for the Athena agent.
//
// It tracks the cost of every external operation the agent performs,
// enforces a daily spending limit through a forward-only escalation
// ladder, and gates which operations may proceed as spend approaches the
// limit:
//   - Per-service cost accounting with a durable JSON ledger
//   - Threshold-based escalation (alert, reduced frequency, emergency,
//     shutdown)
//   - Scheduled daily period resets with archival of closed periods
//   - External cost feed polling
//
// Usage:
//
//	# Start the governor with default configuration
//	governor run
//
//	# Start with custom configuration file
//	governor run --config /path/to/governor.yaml
//
//	# Show the current budget status
//	governor status
//
//	# Force a period reset
//	governor reset --period 2025-02-02
//
//	# List archived periods
//	governor history
//
//	# Show version information
//	governor version
package main

func main() {
	Execute()
}
