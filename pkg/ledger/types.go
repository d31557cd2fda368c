package ledger

import "time"

// Service identifies a paid external service whose spend is tracked.
type Service string

const (
	// ServiceLLMPrimary is the primary LLM provider.
	ServiceLLMPrimary Service = "llm_primary"

	// ServiceLLMSecondary is the fallback LLM provider.
	ServiceLLMSecondary Service = "llm_secondary"

	// ServiceMemoryAPI is the external memory service.
	ServiceMemoryAPI Service = "memory_api"

	// ServiceCloudInfra is cloud infrastructure spend (compute, storage).
	ServiceCloudInfra Service = "cloud_infra"

	// ServiceOther is spend that fits no other bucket.
	ServiceOther Service = "other"
)

// Services returns every tracked service. The set is fixed at compile
// time; Record rejects anything outside it.
func Services() []Service {
	return []Service{
		ServiceLLMPrimary,
		ServiceLLMSecondary,
		ServiceMemoryAPI,
		ServiceCloudInfra,
		ServiceOther,
	}
}

// ValidService reports whether s is a member of the fixed service set.
func ValidService(s Service) bool {
	switch s {
	case ServiceLLMPrimary, ServiceLLMSecondary, ServiceMemoryAPI,
		ServiceCloudInfra, ServiceOther:
		return true
	}
	return false
}

// OperationKind identifies a category of costed agent operation.
type OperationKind string

const (
	// OpLLMCalls counts LLM completion requests.
	OpLLMCalls OperationKind = "llm_calls"

	// OpMemoryOperations counts memory service reads and writes.
	OpMemoryOperations OperationKind = "memory_operations"

	// OpDatabaseOperations counts database queries.
	OpDatabaseOperations OperationKind = "database_operations"

	// OpCognitiveCycles counts full agent reasoning cycles.
	OpCognitiveCycles OperationKind = "cognitive_cycles"

	// OpNone indicates a cost report with no associated operation.
	OpNone OperationKind = ""
)

// OperationKinds returns every tracked operation kind.
func OperationKinds() []OperationKind {
	return []OperationKind{
		OpLLMCalls,
		OpMemoryOperations,
		OpDatabaseOperations,
		OpCognitiveCycles,
	}
}

// ValidOperationKind reports whether k is a member of the fixed kind set.
// OpNone is not a valid kind for counting purposes.
func ValidOperationKind(k OperationKind) bool {
	switch k {
	case OpLLMCalls, OpMemoryOperations, OpDatabaseOperations, OpCognitiveCycles:
		return true
	}
	return false
}

// Alert records a threshold crossing within the tracking period.
type Alert struct {
	// Level is the escalation level that was reached (e.g. "alert",
	// "shutdown").
	Level string

	// At is when the threshold was crossed.
	At time.Time
}

// Snapshot is an immutable copy of ledger state at a point in time.
// It is safe to retain and share: no field aliases live ledger state.
type Snapshot struct {
	// PeriodID is the calendar date of the tracking window (YYYY-MM-DD).
	PeriodID string

	// TotalCost is the sum of all per-service costs, in USD.
	TotalCost float64

	// ServiceCosts maps each tracked service to its accumulated cost.
	// Every member of the fixed service set is present.
	ServiceCosts map[Service]float64

	// OperationCounts maps each tracked operation kind to its count.
	// Every member of the fixed kind set is present.
	OperationCounts map[OperationKind]int64

	// Alerts is the ordered, append-only sequence of threshold crossings.
	Alerts []Alert

	// Mode flags. Monotonic within a period: once set, only a period
	// reset clears them.
	EmergencyMode     bool
	ShutdownTriggered bool
	ReducedFrequency  bool
}

// RemainingBudget returns limit minus total cost. A negative result
// signals overspend.
func (s Snapshot) RemainingBudget(limit float64) float64 {
	return limit - s.TotalCost
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.ServiceCosts = make(map[Service]float64, len(s.ServiceCosts))
	for k, v := range s.ServiceCosts {
		out.ServiceCosts[k] = v
	}
	out.OperationCounts = make(map[OperationKind]int64, len(s.OperationCounts))
	for k, v := range s.OperationCounts {
		out.OperationCounts[k] = v
	}
	out.Alerts = make([]Alert, len(s.Alerts))
	copy(out.Alerts, s.Alerts)
	return out
}
