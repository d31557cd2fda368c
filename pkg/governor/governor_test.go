package governor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/memsink"
	"athena-ops/governor/pkg/policy"
)

func testPolicy() policy.Config {
	return policy.Config{
		DailyLimit: 30.0,
		Thresholds: []policy.Threshold{
			{Fraction: 0.5, Level: policy.LevelAlert},
			{Fraction: 1.0, Level: policy.LevelEmergency},
			{Fraction: 1.2, Level: policy.LevelShutdown},
		},
	}
}

type testEnv struct {
	gov   *Governor
	store *ledger.FileStore
	sink  *memsink.MemorySink
	path  string
}

func newTestGovernor(t *testing.T, cfg Config, now func() time.Time) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := ledger.NewFileStore(ledger.FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	sink := memsink.NewMemorySink()
	gov, err := New(context.Background(), cfg, Options{
		Store: store,
		Sink:  sink,
		Now:   now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{gov: gov, store: store, sink: sink, path: path}
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestGovernorEscalationLadder(t *testing.T) {
	clock := fixedClock("2025-02-01T10:00:00Z")
	env := newTestGovernor(t, Config{Policy: testPolicy()}, clock)
	gov := env.gov
	ctx := context.Background()

	if got := gov.Level(); got != policy.LevelNormal {
		t.Fatalf("initial level = %v, want %v", got, policy.LevelNormal)
	}

	// 10 + 6 = 16 of 30: ratio 0.533, crosses the 0.5 alert threshold.
	if err := gov.RecordCost(ctx, ledger.ServiceCloudInfra, ledger.OpNone, 10.0); err != nil {
		t.Fatalf("RecordCost(cloud_infra) error = %v", err)
	}
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 6.0); err != nil {
		t.Fatalf("RecordCost(llm_primary) error = %v", err)
	}

	st := gov.Status()
	if st.TotalCost != 16.0 {
		t.Errorf("TotalCost = %v, want 16.0", st.TotalCost)
	}
	if gov.Level() != policy.LevelAlert {
		t.Errorf("level = %v, want %v", gov.Level(), policy.LevelAlert)
	}
	if st.EmergencyMode {
		t.Error("EmergencyMode = true at alert level, want false")
	}
	if st.AlertsTriggered != 1 {
		t.Errorf("AlertsTriggered = %d, want 1", st.AlertsTriggered)
	}
	if !gov.MayProceed(ledger.OpCognitiveCycles) {
		t.Error("MayProceed(cognitive_cycles) = false at alert level, want true")
	}

	// +20 = 36 of 30: ratio 1.2, jumps straight to shutdown.
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 20.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}

	st = gov.Status()
	if st.TotalCost != 36.0 {
		t.Errorf("TotalCost = %v, want 36.0", st.TotalCost)
	}
	if gov.Level() != policy.LevelShutdown {
		t.Errorf("level = %v, want %v", gov.Level(), policy.LevelShutdown)
	}
	if !st.ShutdownTriggered || !st.EmergencyMode || !st.ReducedFrequency {
		t.Errorf("mode flags = (%v, %v, %v), want all true",
			st.EmergencyMode, st.ShutdownTriggered, st.ReducedFrequency)
	}
	if gov.MayProceed(ledger.OpCognitiveCycles) {
		t.Error("MayProceed(cognitive_cycles) = true after shutdown, want false")
	}
	if gov.MayProceed(ledger.OpLLMCalls) {
		t.Error("MayProceed(llm_calls) = true after shutdown, want false")
	}
}

func TestGovernorRejectsUnknownInputs(t *testing.T) {
	env := newTestGovernor(t, Config{Policy: testPolicy()}, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 5.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	before := gov.Status()

	cases := []struct {
		name    string
		service ledger.Service
		kind    ledger.OperationKind
		amount  float64
		wantErr error
	}{
		{"unknown service", "quantum_compute", ledger.OpNone, 3.0, ledger.ErrUnknownService},
		{"unknown kind", ledger.ServiceLLMPrimary, "teleport_calls", 3.0, ledger.ErrUnknownOperation},
		{"negative amount", ledger.ServiceLLMPrimary, ledger.OpLLMCalls, -1.0, ledger.ErrNegativeAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := gov.RecordCost(ctx, tc.service, tc.kind, tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("RecordCost() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	after := gov.Status()
	if after.TotalCost != before.TotalCost {
		t.Errorf("TotalCost changed from %v to %v on rejected reports", before.TotalCost, after.TotalCost)
	}
	if after.Level != before.Level {
		t.Errorf("level changed from %s to %s on rejected reports", before.Level, after.Level)
	}
}

func TestGovernorEmergencyAdmitsEssentialOnly(t *testing.T) {
	cfg := Config{
		Policy:              testPolicy(),
		EssentialOperations: []ledger.OperationKind{ledger.OpMemoryOperations},
	}
	env := newTestGovernor(t, cfg, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	// 30 of 30: ratio 1.0, emergency mode.
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 30.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	if gov.Level() != policy.LevelEmergency {
		t.Fatalf("level = %v, want %v", gov.Level(), policy.LevelEmergency)
	}

	if !gov.MayProceed(ledger.OpMemoryOperations) {
		t.Error("MayProceed(memory_operations) = false in emergency, want true for essential kind")
	}
	for _, kind := range []ledger.OperationKind{ledger.OpLLMCalls, ledger.OpDatabaseOperations, ledger.OpCognitiveCycles} {
		if gov.MayProceed(kind) {
			t.Errorf("MayProceed(%s) = true in emergency, want false", kind)
		}
	}
}

func TestGovernorLevelNeverDowngrades(t *testing.T) {
	env := newTestGovernor(t, Config{Policy: testPolicy()}, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 20.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	if gov.Level() != policy.LevelAlert {
		t.Fatalf("level = %v, want %v", gov.Level(), policy.LevelAlert)
	}

	// Zero-cost reports keep the ratio unchanged; the level must hold and
	// no duplicate alert may be appended.
	for i := 0; i < 5; i++ {
		if err := gov.RecordCost(ctx, ledger.ServiceOther, ledger.OpNone, 0); err != nil {
			t.Fatalf("RecordCost() error = %v", err)
		}
	}
	st := gov.Status()
	if gov.Level() != policy.LevelAlert {
		t.Errorf("level = %v after zero-cost reports, want %v", gov.Level(), policy.LevelAlert)
	}
	if st.AlertsTriggered != 1 {
		t.Errorf("AlertsTriggered = %d, want 1", st.AlertsTriggered)
	}
}

func TestGovernorReset(t *testing.T) {
	env := newTestGovernor(t, Config{Policy: testPolicy()}, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	if err := gov.RecordCost(ctx, ledger.ServiceCloudInfra, ledger.OpNone, 36.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	if gov.Level() != policy.LevelShutdown {
		t.Fatalf("level = %v before reset, want %v", gov.Level(), policy.LevelShutdown)
	}

	prior, err := gov.Reset(ctx, "2025-02-02")
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if prior.PeriodID != "2025-02-01" {
		t.Errorf("prior.PeriodID = %q, want 2025-02-01", prior.PeriodID)
	}
	if prior.TotalCost != 36.0 {
		t.Errorf("prior.TotalCost = %v, want 36.0", prior.TotalCost)
	}
	if !prior.ShutdownTriggered {
		t.Error("prior.ShutdownTriggered = false, want true")
	}

	st := gov.Status()
	if st.PeriodID != "2025-02-02" {
		t.Errorf("PeriodID = %q after reset, want 2025-02-02", st.PeriodID)
	}
	if st.TotalCost != 0 {
		t.Errorf("TotalCost = %v after reset, want 0", st.TotalCost)
	}
	if gov.Level() != policy.LevelNormal {
		t.Errorf("level = %v after reset, want %v", gov.Level(), policy.LevelNormal)
	}
	if st.EmergencyMode || st.ShutdownTriggered || st.ReducedFrequency {
		t.Error("mode flags survived reset, want all cleared")
	}
	if !gov.MayProceed(ledger.OpCognitiveCycles) {
		t.Error("MayProceed(cognitive_cycles) = false after reset, want true")
	}

	// The fresh ledger is on disk.
	snap, ok, err := env.store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = (%v, %v), want persisted ledger", ok, err)
	}
	if snap.PeriodID != "2025-02-02" || snap.TotalCost != 0 {
		t.Errorf("persisted ledger = (%q, %v), want (2025-02-02, 0)", snap.PeriodID, snap.TotalCost)
	}
}

func TestGovernorSinkEvents(t *testing.T) {
	env := newTestGovernor(t, Config{Policy: testPolicy()}, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 16.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}

	recs, err := env.sink.Search(ctx, "budget escalation", "athena", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("escalation events = %d, want 1", len(recs))
	}
	if recs[0].Metadata["old_level"] != "normal" || recs[0].Metadata["new_level"] != "alert" {
		t.Errorf("event metadata = %v, want normal -> alert", recs[0].Metadata)
	}

	if _, err := gov.Reset(ctx, "2025-02-02"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	recs, err = env.sink.Search(ctx, "period reset", "athena", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("reset events = %d, want 1", len(recs))
	}
	if recs[0].Metadata["prior_period"] != "2025-02-01" {
		t.Errorf("reset event prior_period = %q, want 2025-02-01", recs[0].Metadata["prior_period"])
	}
}

func TestGovernorResumesPersistedLedger(t *testing.T) {
	clock := fixedClock("2025-02-01T10:00:00Z")
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := ledger.NewFileStore(ledger.FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	cfg := Config{Policy: testPolicy()}

	gov, err := New(ctx, cfg, Options{Store: store, Now: clock})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 36.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}

	// A second governor on the same file resumes both the totals and the
	// shutdown state.
	resumed, err := New(ctx, cfg, Options{Store: store, Now: clock})
	if err != nil {
		t.Fatalf("New() resume error = %v", err)
	}
	if resumed.Level() != policy.LevelShutdown {
		t.Errorf("resumed level = %v, want %v", resumed.Level(), policy.LevelShutdown)
	}
	if resumed.MayProceed(ledger.OpLLMCalls) {
		t.Error("MayProceed() = true after resuming a shutdown ledger, want false")
	}
	st := resumed.Status()
	if st.TotalCost != 36.0 {
		t.Errorf("resumed TotalCost = %v, want 36.0", st.TotalCost)
	}
}

func TestGovernorSupersedesStalePeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := ledger.NewFileStore(ledger.FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	cfg := Config{Policy: testPolicy()}

	gov, err := New(ctx, cfg, Options{Store: store, Now: fixedClock("2025-02-01T10:00:00Z")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 36.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}

	// The next day's process must not inherit yesterday's shutdown.
	next, err := New(ctx, cfg, Options{Store: store, Now: fixedClock("2025-02-02T00:05:00Z")})
	if err != nil {
		t.Fatalf("New() next-day error = %v", err)
	}
	st := next.Status()
	if st.PeriodID != "2025-02-02" {
		t.Errorf("PeriodID = %q, want 2025-02-02", st.PeriodID)
	}
	if st.TotalCost != 0 {
		t.Errorf("TotalCost = %v, want 0", st.TotalCost)
	}
	if next.Level() != policy.LevelNormal {
		t.Errorf("level = %v, want %v", next.Level(), policy.LevelNormal)
	}
	if !next.MayProceed(ledger.OpCognitiveCycles) {
		t.Error("MayProceed() = false on a fresh period, want true")
	}
}

func TestGovernorPersistFailureRollsBack(t *testing.T) {
	env := newTestGovernor(t, Config{Policy: testPolicy()}, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 5.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}

	// Replace the ledger file with a directory so the atomic rename fails.
	if err := os.Remove(env.path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := os.Mkdir(env.path, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 10.0)
	if !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("RecordCost() error = %v, want %v", err, ledger.ErrPersistence)
	}

	st := gov.Status()
	if st.TotalCost != 5.0 {
		t.Errorf("TotalCost = %v after failed persist, want 5.0 (rolled back)", st.TotalCost)
	}
	if st.OperationCounts[ledger.OpLLMCalls] != 1 {
		t.Errorf("llm_calls count = %d after failed persist, want 1", st.OperationCounts[ledger.OpLLMCalls])
	}

	// Once the path is writable again, retrying succeeds.
	if err := os.Remove(env.path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 10.0); err != nil {
		t.Fatalf("RecordCost() retry error = %v", err)
	}
	if got := gov.Status().TotalCost; got != 15.0 {
		t.Errorf("TotalCost = %v after retry, want 15.0", got)
	}
}

func TestGovernorStatusProjection(t *testing.T) {
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) // noon, half a day in
	env := newTestGovernor(t, Config{Policy: testPolicy()}, func() time.Time { return base })
	gov := env.gov
	ctx := context.Background()

	st := gov.Status()
	if st.SpendRateKnown {
		t.Error("SpendRateKnown = true with zero spend, want false")
	}
	if st.Remaining != 30.0 {
		t.Errorf("Remaining = %v, want 30.0", st.Remaining)
	}

	// $6 in half a day is a $12/day rate; $24 remaining projects 2 days out.
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 6.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	st = gov.Status()
	if !st.SpendRateKnown {
		t.Fatal("SpendRateKnown = false with spend and elapsed time, want true")
	}
	if st.ElapsedDays != 0.5 {
		t.Errorf("ElapsedDays = %v, want 0.5", st.ElapsedDays)
	}
	if st.DaysUntilLimit != 2.0 {
		t.Errorf("DaysUntilLimit = %v, want 2.0", st.DaysUntilLimit)
	}
	if st.UsageRatio != 0.2 {
		t.Errorf("UsageRatio = %v, want 0.2", st.UsageRatio)
	}
	if st.ServiceCosts[ledger.ServiceLLMPrimary] != 6.0 {
		t.Errorf("ServiceCosts[llm_primary] = %v, want 6.0", st.ServiceCosts[ledger.ServiceLLMPrimary])
	}
}

func TestGovernorMetricsWiring(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := ledger.NewFileStore(ledger.FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	ctx := context.Background()
	gov, err := New(ctx, Config{Policy: testPolicy()}, Options{
		Store:   store,
		Metrics: metrics,
		Now:     fixedClock("2025-02-01T10:00:00Z"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 36.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	gov.MayProceed(ledger.OpCognitiveCycles)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := make(map[string]bool)
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	for _, name := range []string{
		"athena_governor_cost_total",
		"athena_governor_operations_total",
		"athena_governor_budget_usage_ratio",
		"athena_governor_escalation_level",
		"athena_governor_escalations_total",
		"athena_governor_admission_denials_total",
		"athena_governor_ledger_persist_duration_seconds",
	} {
		if !found[name] {
			t.Errorf("metric %q not gathered", name)
		}
	}
}

func TestGovernorRequiresStore(t *testing.T) {
	_, err := New(context.Background(), Config{Policy: testPolicy()}, Options{})
	if !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("New() error = %v, want %v", err, ledger.ErrPersistence)
	}
}

func TestGovernorRejectsBadConfig(t *testing.T) {
	store, err := ledger.NewFileStore(ledger.FileStoreConfig{
		Path: filepath.Join(t.TempDir(), "ledger.json"),
	})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	t.Run("invalid policy", func(t *testing.T) {
		_, err := New(context.Background(), Config{
			Policy: policy.Config{DailyLimit: -1},
		}, Options{Store: store})
		if !errors.Is(err, policy.ErrInvalidConfig) {
			t.Fatalf("New() error = %v, want %v", err, policy.ErrInvalidConfig)
		}
	})

	t.Run("unknown essential kind", func(t *testing.T) {
		_, err := New(context.Background(), Config{
			Policy:              testPolicy(),
			EssentialOperations: []ledger.OperationKind{"time_travel"},
		}, Options{Store: store})
		if !errors.Is(err, ledger.ErrUnknownOperation) {
			t.Fatalf("New() error = %v, want %v", err, ledger.ErrUnknownOperation)
		}
	})
}

func TestGovernorUpdatePolicy(t *testing.T) {
	env := newTestGovernor(t, Config{Policy: testPolicy()}, fixedClock("2025-02-01T10:00:00Z"))
	gov := env.gov
	ctx := context.Background()

	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 10.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	if gov.Level() != policy.LevelNormal {
		t.Fatalf("level = %v, want %v", gov.Level(), policy.LevelNormal)
	}

	// An invalid replacement leaves the active policy untouched.
	if err := gov.UpdatePolicy(ctx, policy.Config{DailyLimit: -1}); !errors.Is(err, policy.ErrInvalidConfig) {
		t.Fatalf("UpdatePolicy() error = %v, want %v", err, policy.ErrInvalidConfig)
	}
	if got := gov.Status().DailyLimit; got != 30.0 {
		t.Errorf("DailyLimit = %v after rejected update, want 30.0", got)
	}

	// Tightening the limit re-evaluates the current spend immediately.
	tight := testPolicy()
	tight.DailyLimit = 8.0
	if err := gov.UpdatePolicy(ctx, tight); err != nil {
		t.Fatalf("UpdatePolicy() error = %v", err)
	}
	if gov.Level() != policy.LevelShutdown {
		t.Errorf("level = %v after tightened limit, want %v", gov.Level(), policy.LevelShutdown)
	}
}

func TestPeriodID(t *testing.T) {
	// Period identity follows UTC, not the local zone.
	loc := time.FixedZone("UTC+9", 9*3600)
	at := time.Date(2025, 2, 2, 3, 0, 0, 0, loc) // still Feb 1 in UTC
	if got := PeriodID(at); got != "2025-02-01" {
		t.Errorf("PeriodID() = %q, want 2025-02-01", got)
	}
}
