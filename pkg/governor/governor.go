package governor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/memsink"
	"athena-ops/governor/pkg/policy"
)

// PeriodID returns the canonical tracking period identifier for t.
func PeriodID(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config contains the governor's fixed-per-deployment policy.
type Config struct {
	// Policy is the daily limit and escalation threshold table.
	Policy policy.Config

	// EssentialOperations lists the operation kinds allowed to proceed
	// during emergency mode. Everything else is denied until reset.
	EssentialOperations []ledger.OperationKind

	// MemoryUserID scopes escalation events written to the memory sink.
	// Default: "athena"
	MemoryUserID string
}

// Options carries the governor's collaborators. Store is required; the
// rest are optional.
type Options struct {
	// Store persists the active ledger.
	Store *ledger.FileStore

	// Archive retains superseded period ledgers, if non-nil.
	Archive *ledger.ArchiveStore

	// Sink receives escalation events, if non-nil.
	Sink memsink.Sink

	// Metrics receives cost and escalation observations, if non-nil.
	Metrics *Metrics

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Governor is the stateful budget controller.
type Governor struct {
	mu sync.RWMutex

	cfg       Config
	essential map[ledger.OperationKind]bool

	ledger      *ledger.Ledger
	periodStart time.Time
	level       policy.Level

	store   *ledger.FileStore
	archive *ledger.ArchiveStore
	sink    memsink.Sink
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a governor, resuming the persisted ledger for the current
// period if one exists, or opening a fresh one otherwise. A persisted
// ledger from an older period is archived and superseded immediately.
func New(ctx context.Context, cfg Config, opts Options) (*Governor, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: ledger store is required", ledger.ErrPersistence)
	}
	if cfg.MemoryUserID == "" {
		cfg.MemoryUserID = "athena"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	g := &Governor{
		cfg:       cfg,
		essential: make(map[ledger.OperationKind]bool, len(cfg.EssentialOperations)),
		store:     opts.Store,
		archive:   opts.Archive,
		sink:      opts.Sink,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "governor"),
		now:       now,
	}
	for _, k := range cfg.EssentialOperations {
		if !ledger.ValidOperationKind(k) {
			return nil, ledger.UnknownOperationError(k)
		}
		g.essential[k] = true
	}

	if err := g.open(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// open loads or creates the active ledger and derives the starting level.
func (g *Governor) open(ctx context.Context) error {
	today := PeriodID(g.now())

	snap, ok, err := g.store.Load(ctx)
	if err != nil {
		return err
	}

	switch {
	case !ok:
		g.ledger = ledger.New(today)
		if err := g.store.Save(ctx, g.ledger.Snapshot()); err != nil {
			return err
		}
	case snap.PeriodID != today:
		// A stale period on disk is archived and superseded, mirroring
		// what the scheduled reset would have done.
		g.logger.Info("superseding stale period ledger",
			"stale_period", snap.PeriodID,
			"current_period", today,
		)
		if g.archive != nil {
			if err := g.archive.Archive(ctx, snap); err != nil {
				g.logger.Error("failed to archive stale period", "error", err)
			}
		}
		g.ledger = ledger.New(today)
		if err := g.store.Save(ctx, g.ledger.Snapshot()); err != nil {
			return err
		}
	default:
		l, err := ledger.FromSnapshot(snap)
		if err != nil {
			return err
		}
		g.ledger = l
	}

	active := g.ledger.Snapshot()
	g.periodStart = periodStart(active.PeriodID, g.now())
	g.level = deriveLevel(active, g.cfg.Policy)
	g.observeSnapshot(active)

	g.logger.Info("budget governor ready",
		"period", active.PeriodID,
		"total_cost", active.TotalCost,
		"daily_limit", g.cfg.Policy.DailyLimit,
		"level", g.level.String(),
	)
	return nil
}

// RecordCost ingests one cost delta: it mutates the ledger, persists the
// result, and escalates if a threshold was crossed.
//
// Validation failures (unknown service or kind, negative amount) and
// persistence failures leave both the in-memory and durable ledger
// unchanged. Persistence errors wrap ledger.ErrPersistence and may be
// retried by the caller.
func (g *Governor) RecordCost(ctx context.Context, service ledger.Service, kind ledger.OperationKind, amount float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.ledger.Snapshot()
	snap, err := g.ledger.Record(service, kind, amount)
	if err != nil {
		return err
	}

	if err := g.persist(ctx, snap); err != nil {
		g.ledger.Restore(prev)
		return err
	}

	if g.metrics != nil {
		g.metrics.ObserveCost(service, amount)
		if kind != ledger.OpNone {
			g.metrics.ObserveOperation(kind)
		}
	}

	newLevel, err := policy.Evaluate(snap, g.cfg.Policy)
	if err != nil {
		return err
	}
	if newLevel > g.level {
		g.escalateLocked(ctx, newLevel, snap.TotalCost)
	}
	g.observeSnapshot(g.ledger.Snapshot())
	return nil
}

// escalateLocked transitions to a strictly higher level. Caller must hold
// the write lock.
func (g *Governor) escalateLocked(ctx context.Context, newLevel policy.Level, totalCost float64) {
	oldLevel := g.level
	at := g.now().UTC()

	snap := g.ledger.Escalate(newLevel.String(), at,
		newLevel >= policy.LevelReducedFrequency,
		newLevel >= policy.LevelEmergency,
		newLevel >= policy.LevelShutdown,
	)
	g.level = newLevel

	g.logger.Warn("budget escalation",
		"old_level", oldLevel.String(),
		"new_level", newLevel.String(),
		"total_cost", totalCost,
		"daily_limit", g.cfg.Policy.DailyLimit,
	)

	// The escalation is already committed in memory; a failed write here
	// must not clear safety flags, so it is logged rather than reverted.
	if err := g.persist(ctx, snap); err != nil {
		g.logger.Error("failed to persist escalation", "error", err)
	}

	if g.metrics != nil {
		g.metrics.RecordEscalation(newLevel)
	}
	g.emitEscalationEvent(ctx, oldLevel, newLevel, totalCost, at)
}

// emitEscalationEvent writes the transition to the memory sink. Best
// effort: a sink failure is logged, never propagated into accounting.
func (g *Governor) emitEscalationEvent(ctx context.Context, oldLevel, newLevel policy.Level, totalCost float64, at time.Time) {
	if g.sink == nil {
		return
	}

	content := fmt.Sprintf("budget escalation: %s -> %s at $%.2f of $%.2f daily limit",
		oldLevel.String(), newLevel.String(), totalCost, g.cfg.Policy.DailyLimit)
	metadata := map[string]string{
		"event":      "budget_escalation",
		"old_level":  oldLevel.String(),
		"new_level":  newLevel.String(),
		"total_cost": fmt.Sprintf("%.4f", totalCost),
		"at":         at.Format(time.RFC3339),
	}

	if _, err := g.sink.Add(ctx, content, g.cfg.MemoryUserID, metadata); err != nil {
		g.logger.Warn("failed to write escalation event to memory sink", "error", err)
	}
}

// MayProceed reports whether an operation of the given kind is admitted
// under the current escalation state. This is the gate every costed
// external call must pass.
func (g *Governor) MayProceed(kind ledger.OperationKind) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := g.ledger.Snapshot()
	switch {
	case snap.ShutdownTriggered:
		g.denied(kind)
		return false
	case snap.EmergencyMode && !g.essential[kind]:
		g.denied(kind)
		return false
	}
	return true
}

func (g *Governor) denied(kind ledger.OperationKind) {
	if g.metrics != nil {
		g.metrics.RecordAdmissionDenied(kind)
	}
}

// UpdatePolicy replaces the threshold policy at runtime, for
// configuration hot reload. The new policy is validated first; on error
// the active policy is unchanged. The current spend is re-evaluated
// under the new policy immediately, which may escalate but never
// downgrades the level.
func (g *Governor) UpdatePolicy(ctx context.Context, p policy.Config) error {
	if err := p.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.cfg.Policy = p
	snap := g.ledger.Snapshot()

	newLevel, err := policy.Evaluate(snap, p)
	if err != nil {
		return err
	}
	if newLevel > g.level {
		g.escalateLocked(ctx, newLevel, snap.TotalCost)
	}
	g.observeSnapshot(g.ledger.Snapshot())

	g.logger.Info("budget policy updated",
		"daily_limit", p.DailyLimit,
		"thresholds", len(p.Thresholds),
		"level", g.level.String(),
	)
	return nil
}

// Level returns the current escalation level.
func (g *Governor) Level() policy.Level {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

// Reset atomically replaces the active ledger with a fresh zeroed one for
// newPeriodID, clears the escalation level back to NORMAL, and returns
// the prior ledger as an immutable archival record.
//
// Safe to call repeatedly; each call zeroes state. If persisting the
// fresh ledger fails, the active ledger is unchanged and the error is
// returned.
func (g *Governor) Reset(ctx context.Context, newPeriodID string) (ledger.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prior := g.ledger.Snapshot()
	fresh := ledger.New(newPeriodID)

	if err := g.persist(ctx, fresh.Snapshot()); err != nil {
		return ledger.Snapshot{}, err
	}

	if g.archive != nil {
		if err := g.archive.Archive(ctx, prior); err != nil {
			// The caller still receives the archival record; only the
			// durable history row is missing.
			g.logger.Error("failed to archive superseded period",
				"period", prior.PeriodID,
				"error", err,
			)
		}
	}

	g.ledger = fresh
	g.level = policy.LevelNormal
	g.periodStart = periodStart(newPeriodID, g.now())

	g.logger.Info("period reset",
		"prior_period", prior.PeriodID,
		"prior_total", prior.TotalCost,
		"new_period", newPeriodID,
	)

	if g.sink != nil {
		content := fmt.Sprintf("period reset: %s closed at $%.2f, %s opened",
			prior.PeriodID, prior.TotalCost, newPeriodID)
		metadata := map[string]string{
			"event":        "period_reset",
			"prior_period": prior.PeriodID,
			"prior_total":  fmt.Sprintf("%.4f", prior.TotalCost),
			"new_period":   newPeriodID,
		}
		if _, err := g.sink.Add(ctx, content, g.cfg.MemoryUserID, metadata); err != nil {
			g.logger.Warn("failed to write reset event to memory sink", "error", err)
		}
	}

	g.observeSnapshot(fresh.Snapshot())
	return prior, nil
}

// persist saves snap through the file store, timing the write.
func (g *Governor) persist(ctx context.Context, snap ledger.Snapshot) error {
	start := time.Now()
	err := g.store.Save(ctx, snap)
	if g.metrics != nil {
		g.metrics.ObservePersist(time.Since(start))
	}
	return err
}

// observeSnapshot refreshes gauge-style metrics from snap.
func (g *Governor) observeSnapshot(snap ledger.Snapshot) {
	if g.metrics == nil {
		return
	}
	g.metrics.SetUsageRatio(snap.TotalCost / g.cfg.Policy.DailyLimit)
	g.metrics.SetLevel(g.level)
}

// deriveLevel reconstructs the escalation level for a resumed ledger:
// the policy's verdict on the totals, floored by whatever mode flags were
// already set (flags never downgrade within a period).
func deriveLevel(snap ledger.Snapshot, cfg policy.Config) policy.Level {
	level, err := policy.Evaluate(snap, cfg)
	if err != nil {
		level = policy.LevelNormal
	}
	switch {
	case snap.ShutdownTriggered && level < policy.LevelShutdown:
		level = policy.LevelShutdown
	case snap.EmergencyMode && level < policy.LevelEmergency:
		level = policy.LevelEmergency
	case snap.ReducedFrequency && level < policy.LevelReducedFrequency:
		level = policy.LevelReducedFrequency
	}
	return level
}

// periodStart returns the UTC midnight opening the period. A malformed
// period identifier falls back to the current day's midnight.
func periodStart(periodID string, now time.Time) time.Time {
	if t, err := time.Parse("2006-01-02", periodID); err == nil {
		return t.UTC()
	}
	n := now.UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
