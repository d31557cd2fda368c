// Package ledger provides the durable cost ledger for a single tracking
// period.
//
// # Overview
//
// A Ledger accumulates spend for one calendar day, broken down by service
// and by operation kind. Both key sets are closed enumerations: recording
// against an unknown service or operation fails with ErrUnknownService or
// ErrUnknownOperation instead of silently creating a new entry. This
// prevents accounting drift from typos in cost feed payloads.
//
// # Invariant
//
// After every mutation, TotalCost equals the sum of all per-service costs.
// Snapshot returns a deep copy so that callers (policy evaluation, status
// reporting) can never corrupt the accounting state.
//
// # Persistence
//
// FileStore persists a snapshot as a JSON document using a
// write-to-temporary-file-then-rename discipline, so a crash mid-write
// leaves the previous file intact. ArchiveStore retains superseded period
// ledgers in SQLite as immutable historical records.
//
// # Thread Safety
//
// Ledger is safe for concurrent use via sync.RWMutex. Mutations across
// ledger and store are additionally serialized by the governor, which is
// the ledger's single logical owner.
package ledger
