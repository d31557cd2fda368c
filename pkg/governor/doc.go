// Package governor implements the budget-aware operational governor for
// the agent.
//
// # Overview
//
// The Governor is the single owner of the active cost ledger. It ingests
// cost deltas from the feed poller, persists every mutation, evaluates
// the threshold policy, and drives forward-only escalation within a
// tracking period:
//
//	NORMAL -> ALERT -> REDUCED_FREQUENCY -> EMERGENCY -> SHUTDOWN
//
// Crossing a threshold appends an alert record, raises the cumulative
// mode flags, and writes an escalation event to the memory sink.
// Escalation never downgrades except through a period reset.
//
// # Admission
//
// MayProceed is the sole gate surrounding-agent code consults before any
// costed external call. Once shutdown is triggered it denies everything;
// during emergency mode only the configured essential operation kinds
// pass.
//
// # Period reset
//
// Reset swaps in a zeroed ledger for the new period, returns the prior
// ledger as an immutable archival record, and clears the escalation level
// back to NORMAL. ResetScheduler invokes it on a cron schedule (daily at
// midnight by default).
//
// # Concurrency
//
// RecordCost and Reset are serialized by a write lock; MayProceed and
// Status take a read lock and always observe a fully consistent snapshot.
package governor
