package governor

import (
	"time"

	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/policy"
)

// Status is a read-only projection of the governor's current state.
type Status struct {
	// PeriodID is the active tracking period (YYYY-MM-DD).
	PeriodID string `json:"period"`

	// Level is the current escalation level.
	Level string `json:"level"`

	// TotalCost is the period's accumulated spend in USD.
	TotalCost float64 `json:"total_cost"`

	// DailyLimit is the configured spending ceiling.
	DailyLimit float64 `json:"daily_limit"`

	// Remaining is DailyLimit minus TotalCost; negative means overspend.
	Remaining float64 `json:"remaining"`

	// UsageRatio is TotalCost over DailyLimit (0.0-1.0+).
	UsageRatio float64 `json:"usage_ratio"`

	// ServiceCosts breaks spend down by service.
	ServiceCosts map[ledger.Service]float64 `json:"services"`

	// OperationCounts breaks activity down by operation kind.
	OperationCounts map[ledger.OperationKind]int64 `json:"operations"`

	// AlertsTriggered is the number of threshold crossings this period.
	AlertsTriggered int `json:"alerts_triggered"`

	// Mode flags.
	EmergencyMode     bool `json:"emergency_mode"`
	ShutdownTriggered bool `json:"shutdown_triggered"`
	ReducedFrequency  bool `json:"reduced_frequency"`

	// ElapsedDays is how far into the period the clock is, in days.
	ElapsedDays float64 `json:"elapsed_days"`

	// DaysUntilLimit estimates when the limit will be hit at the
	// observed spend rate: remaining budget over spend per day. Only
	// meaningful when SpendRateKnown is true; with zero spend there is
	// no rate and the estimate is undefined.
	DaysUntilLimit float64 `json:"days_until_limit,omitempty"`

	// SpendRateKnown reports whether DaysUntilLimit is defined.
	SpendRateKnown bool `json:"spend_rate_known"`
}

// Status returns a consistent snapshot of the governor's state.
func (g *Governor) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := StatusFromSnapshot(g.ledger.Snapshot(), g.cfg.Policy, g.now())
	st.Level = g.level.String()
	return st
}

// StatusFromSnapshot builds a status report from a persisted snapshot,
// for offline inspection of the ledger file. The level is derived from
// the snapshot's totals and mode flags; a running governor may hold a
// higher level if it escalated without a flag-setting threshold.
func StatusFromSnapshot(snap ledger.Snapshot, p policy.Config, now time.Time) Status {
	limit := p.DailyLimit

	st := Status{
		PeriodID:          snap.PeriodID,
		Level:             deriveLevel(snap, p).String(),
		TotalCost:         snap.TotalCost,
		DailyLimit:        limit,
		Remaining:         snap.RemainingBudget(limit),
		UsageRatio:        snap.TotalCost / limit,
		ServiceCosts:      snap.ServiceCosts,
		OperationCounts:   snap.OperationCounts,
		AlertsTriggered:   len(snap.Alerts),
		EmergencyMode:     snap.EmergencyMode,
		ShutdownTriggered: snap.ShutdownTriggered,
		ReducedFrequency:  snap.ReducedFrequency,
	}

	elapsed := now.UTC().Sub(periodStart(snap.PeriodID, now))
	if elapsed > 0 {
		st.ElapsedDays = elapsed.Hours() / 24
	}

	// Rate-based projection: remaining / (total / elapsed days). With no
	// spend or no elapsed time there is no rate, and the estimate stays
	// undefined rather than dividing by zero.
	if snap.TotalCost > 0 && st.ElapsedDays > 0 {
		rate := snap.TotalCost / st.ElapsedDays
		st.DaysUntilLimit = st.Remaining / rate
		st.SpendRateKnown = true
	}
	return st
}

// LevelValue parses the status level back into an ordered policy level.
// Convenience for callers that render or compare levels.
func (s Status) LevelValue() (policy.Level, error) {
	return policy.ParseLevel(s.Level)
}

// Elapsed reports the duration since the period opened, given the status
// ElapsedDays field.
func (s Status) Elapsed() time.Duration {
	return time.Duration(s.ElapsedDays * 24 * float64(time.Hour))
}
