package ledger

import (
	"sync"
	"time"
)

// Ledger accumulates spend for a single tracking period.
//
// All maps are pre-populated with the full fixed key set at creation, so
// iteration order aside, the shape of the ledger never changes within a
// period. Mutations hold the write lock; Snapshot holds the read lock and
// returns a deep copy.
type Ledger struct {
	mu sync.RWMutex

	periodID        string
	totalCost       float64
	serviceCosts    map[Service]float64
	operationCounts map[OperationKind]int64
	alerts          []Alert

	emergencyMode     bool
	shutdownTriggered bool
	reducedFrequency  bool
}

// New creates a zeroed ledger for the given period.
func New(periodID string) *Ledger {
	l := &Ledger{
		periodID:        periodID,
		serviceCosts:    make(map[Service]float64, len(Services())),
		operationCounts: make(map[OperationKind]int64, len(OperationKinds())),
	}
	for _, s := range Services() {
		l.serviceCosts[s] = 0
	}
	for _, k := range OperationKinds() {
		l.operationCounts[k] = 0
	}
	return l
}

// FromSnapshot creates a ledger whose state matches snap. Service and
// operation keys missing from the snapshot are zero-filled; keys outside
// the fixed sets are rejected.
func FromSnapshot(snap Snapshot) (*Ledger, error) {
	for s := range snap.ServiceCosts {
		if !ValidService(s) {
			return nil, UnknownServiceError(s)
		}
	}
	for k := range snap.OperationCounts {
		if !ValidOperationKind(k) {
			return nil, UnknownOperationError(k)
		}
	}

	l := New(snap.PeriodID)
	l.totalCost = snap.TotalCost
	for s, v := range snap.ServiceCosts {
		l.serviceCosts[s] = v
	}
	for k, v := range snap.OperationCounts {
		l.operationCounts[k] = v
	}
	l.alerts = make([]Alert, len(snap.Alerts))
	copy(l.alerts, snap.Alerts)
	l.emergencyMode = snap.EmergencyMode
	l.shutdownTriggered = snap.ShutdownTriggered
	l.reducedFrequency = snap.ReducedFrequency
	return l, nil
}

// PeriodID returns the calendar date identifying the tracking window.
func (l *Ledger) PeriodID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.periodID
}

// Record adds amount to the given service and increments the operation
// count for kind (pass OpNone to record cost with no operation).
//
// On any validation failure nothing is mutated. Returns the post-mutation
// snapshot on success.
func (l *Ledger) Record(service Service, kind OperationKind, amount float64) (Snapshot, error) {
	if !ValidService(service) {
		return Snapshot{}, UnknownServiceError(service)
	}
	if kind != OpNone && !ValidOperationKind(kind) {
		return Snapshot{}, UnknownOperationError(kind)
	}
	if amount < 0 {
		return Snapshot{}, ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.serviceCosts[service] += amount
	l.totalCost += amount
	if kind != OpNone {
		l.operationCounts[kind]++
	}
	return l.snapshotLocked(), nil
}

// Snapshot returns an immutable deep copy of current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// RemainingBudget returns limit minus the current total cost. The result
// may be negative, signaling overspend.
func (l *Ledger) RemainingBudget(limit float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return limit - l.totalCost
}

// Escalate appends an alert record for level and raises the mode flags.
// Flags are monotonic: Escalate never clears a flag that is already set.
func (l *Ledger) Escalate(level string, at time.Time, reduced, emergency, shutdown bool) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.alerts = append(l.alerts, Alert{Level: level, At: at})
	l.reducedFrequency = l.reducedFrequency || reduced
	l.emergencyMode = l.emergencyMode || emergency
	l.shutdownTriggered = l.shutdownTriggered || shutdown
	return l.snapshotLocked()
}

// Restore replaces the ledger's entire state with snap. Used to roll back
// an in-memory mutation whose persistence failed.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.periodID = snap.PeriodID
	l.totalCost = snap.TotalCost
	for _, s := range Services() {
		l.serviceCosts[s] = snap.ServiceCosts[s]
	}
	for _, k := range OperationKinds() {
		l.operationCounts[k] = snap.OperationCounts[k]
	}
	l.alerts = make([]Alert, len(snap.Alerts))
	copy(l.alerts, snap.Alerts)
	l.emergencyMode = snap.EmergencyMode
	l.shutdownTriggered = snap.ShutdownTriggered
	l.reducedFrequency = snap.ReducedFrequency
}

// snapshotLocked builds a deep copy. Caller must hold at least the read
// lock.
func (l *Ledger) snapshotLocked() Snapshot {
	snap := Snapshot{
		PeriodID:          l.periodID,
		TotalCost:         l.totalCost,
		ServiceCosts:      make(map[Service]float64, len(l.serviceCosts)),
		OperationCounts:   make(map[OperationKind]int64, len(l.operationCounts)),
		Alerts:            make([]Alert, len(l.alerts)),
		EmergencyMode:     l.emergencyMode,
		ShutdownTriggered: l.shutdownTriggered,
		ReducedFrequency:  l.reducedFrequency,
	}
	for s, v := range l.serviceCosts {
		snap.ServiceCosts[s] = v
	}
	for k, v := range l.operationCounts {
		snap.OperationCounts[k] = v
	}
	copy(snap.Alerts, l.alerts)
	return snap
}
