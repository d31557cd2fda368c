// Package policy maps a ledger snapshot to an escalation level.
//
// Evaluation is a pure function: the same snapshot and configuration
// always produce the same level, with no side effects. The governor owns
// all state transitions; this package only answers "how far over budget
// is this period".
//
// Levels form an ordered escalation ladder:
//
//	NORMAL < ALERT < REDUCED_FREQUENCY < EMERGENCY < SHUTDOWN
//
// A Config carries the daily limit and an ordered list of
// fraction-of-limit thresholds. Evaluate returns the highest configured
// level whose threshold fraction is at or below the observed spend ratio.
package policy
