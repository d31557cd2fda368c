// Package integration exercises the full governor stack the way the run
// command wires it: configuration file, ledger file store, archive
// database, memory sink, cost feeds, and the governor itself.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"athena-ops/governor/pkg/config"
	"athena-ops/governor/pkg/feed"
	"athena-ops/governor/pkg/governor"
	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/memsink"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `
budget:
  daily_limit: 30.0
  thresholds:
    - fraction: 0.5
      level: alert
    - fraction: 1.0
      level: emergency
    - fraction: 1.2
      level: shutdown
  essential_operations:
    - memory_operations
ledger:
  path: ` + filepath.Join(dir, "cost_ledger.json") + `
  archive:
    enabled: true
    path: ` + filepath.Join(dir, "ledger_archive.db") + `
memory:
  backend: memory
reset:
  enabled: true
  schedule: "0 0 * * *"
telemetry:
  metrics:
    enabled: false
`
	path := filepath.Join(dir, "governor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestGovernorFullLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(writeConfig(t, dir))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	ctx := context.Background()

	store, err := ledger.NewFileStore(ledger.FileStoreConfig{
		Path:         cfg.Ledger.Path,
		WriteTimeout: cfg.Ledger.WriteTimeout,
	})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	archive, err := ledger.NewArchiveStore(cfg.Ledger.Archive.Path)
	if err != nil {
		t.Fatalf("NewArchiveStore() error = %v", err)
	}
	defer archive.Close()

	sink := memsink.NewMemorySink()

	pol, err := cfg.Budget.PolicyConfig()
	if err != nil {
		t.Fatalf("PolicyConfig() error = %v", err)
	}

	clock := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	gov, err := governor.New(ctx, governor.Config{
		Policy:              pol,
		EssentialOperations: cfg.Budget.EssentialKinds(),
		MemoryUserID:        cfg.Memory.UserID,
	}, governor.Options{
		Store:   store,
		Archive: archive,
		Sink:    sink,
		Now:     func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("governor.New() error = %v", err)
	}

	// Costs arrive through a feed poller, the same path the run command
	// uses for the HTTP relays.
	costs := feed.NewStaticFeed("billing")
	costs.Push(
		feed.Sample{Service: ledger.ServiceCloudInfra, Amount: 10.0},
		feed.Sample{Service: ledger.ServiceLLMPrimary, Operation: ledger.OpLLMCalls, Amount: 6.0},
	)
	poller := feed.NewPoller(gov, []feed.Feed{costs}, feed.PollerConfig{})
	poller.PollOnce(ctx)

	st := gov.Status()
	if st.TotalCost != 16.0 {
		t.Fatalf("TotalCost = %v after first poll, want 16.0", st.TotalCost)
	}
	if st.Level != "alert" {
		t.Errorf("Level = %q, want alert", st.Level)
	}
	if !gov.MayProceed(ledger.OpCognitiveCycles) {
		t.Error("MayProceed(cognitive_cycles) = false at alert, want true")
	}

	// Second poll pushes spend past the shutdown threshold.
	costs.Push(feed.Sample{Service: ledger.ServiceLLMPrimary, Operation: ledger.OpLLMCalls, Amount: 20.0})
	poller.PollOnce(ctx)

	st = gov.Status()
	if st.TotalCost != 36.0 {
		t.Fatalf("TotalCost = %v after second poll, want 36.0", st.TotalCost)
	}
	if st.Level != "shutdown" {
		t.Errorf("Level = %q, want shutdown", st.Level)
	}
	if gov.MayProceed(ledger.OpMemoryOperations) {
		t.Error("MayProceed(memory_operations) = true after shutdown, want false")
	}

	// The persisted ledger reflects the shutdown for offline status.
	snap, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = (%v, %v), want persisted ledger", ok, err)
	}
	offline := governor.StatusFromSnapshot(snap, pol, clock)
	if offline.Level != "shutdown" || !offline.ShutdownTriggered {
		t.Errorf("offline status = (%q, %v), want shutdown", offline.Level, offline.ShutdownTriggered)
	}

	// Escalation events landed in the memory sink.
	events, err := sink.Search(ctx, "budget escalation", cfg.Memory.UserID, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("escalation events = %d, want 2 (alert, shutdown)", len(events))
	}

	// Period reset archives the closed day and reopens the gate.
	prior, err := gov.Reset(ctx, "2025-02-02")
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if prior.TotalCost != 36.0 {
		t.Errorf("prior.TotalCost = %v, want 36.0", prior.TotalCost)
	}

	archived, ok, err := archive.Load(ctx, "2025-02-01")
	if err != nil || !ok {
		t.Fatalf("archive.Load() = (%v, %v), want archived period", ok, err)
	}
	if archived.TotalCost != 36.0 || !archived.ShutdownTriggered {
		t.Errorf("archived = (%v, %v), want (36.0, true)", archived.TotalCost, archived.ShutdownTriggered)
	}

	st = gov.Status()
	if st.PeriodID != "2025-02-02" || st.TotalCost != 0 || st.Level != "normal" {
		t.Errorf("post-reset status = (%q, %v, %q), want (2025-02-02, 0, normal)", st.PeriodID, st.TotalCost, st.Level)
	}
	if !gov.MayProceed(ledger.OpCognitiveCycles) {
		t.Error("MayProceed() = false after reset, want true")
	}
}

func TestGovernorRestartResumesState(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(writeConfig(t, dir))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	ctx := context.Background()
	clock := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	pol, err := cfg.Budget.PolicyConfig()
	if err != nil {
		t.Fatalf("PolicyConfig() error = %v", err)
	}

	open := func() *governor.Governor {
		store, err := ledger.NewFileStore(ledger.FileStoreConfig{Path: cfg.Ledger.Path})
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		gov, err := governor.New(ctx, governor.Config{
			Policy:              pol,
			EssentialOperations: cfg.Budget.EssentialKinds(),
		}, governor.Options{
			Store: store,
			Now:   func() time.Time { return clock },
		})
		if err != nil {
			t.Fatalf("governor.New() error = %v", err)
		}
		return gov
	}

	gov := open()
	if err := gov.RecordCost(ctx, ledger.ServiceLLMPrimary, ledger.OpLLMCalls, 31.0); err != nil {
		t.Fatalf("RecordCost() error = %v", err)
	}
	if gov.Status().Level != "emergency" {
		t.Fatalf("Level = %q, want emergency", gov.Status().Level)
	}

	// A restarted process resumes the emergency gate within the period.
	resumed := open()
	if resumed.Status().Level != "emergency" {
		t.Errorf("resumed Level = %q, want emergency", resumed.Status().Level)
	}
	if resumed.MayProceed(ledger.OpLLMCalls) {
		t.Error("MayProceed(llm_calls) = true after resuming emergency, want false")
	}
	if !resumed.MayProceed(ledger.OpMemoryOperations) {
		t.Error("MayProceed(memory_operations) = false for essential kind, want true")
	}
}
