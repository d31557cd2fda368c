package governor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ResetScheduler invokes the period reset on a cron schedule, opening a
// fresh ledger for each new tracking period.
type ResetScheduler struct {
	gov      *Governor
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewResetScheduler creates a scheduler for gov.
//
// Common cron expressions:
//   - "0 0 * * *"   - Daily at midnight (the intended cadence)
//   - "0 */6 * * *" - Every 6 hours
func NewResetScheduler(gov *Governor, schedule string) *ResetScheduler {
	return &ResetScheduler{
		gov:      gov,
		cron:     cron.New(),
		schedule: schedule,
		logger:   slog.Default().With("component", "governor.scheduler"),
		now:      time.Now,
	}
}

// Start begins scheduled resets. An empty schedule disables the
// scheduler; an invalid expression is a startup error.
func (s *ResetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("reset schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid reset schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runReset(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule period reset: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("reset scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runReset executes one scheduled reset for the current calendar period.
func (s *ResetScheduler) runReset(ctx context.Context) {
	period := PeriodID(s.now())
	s.logger.Info("starting scheduled period reset", "period", period)

	archived, err := s.gov.Reset(ctx, period)
	if err != nil {
		s.logger.Error("scheduled period reset failed", "error", err)
		return
	}

	s.logger.Info("scheduled period reset completed",
		"archived_period", archived.PeriodID,
		"archived_total", archived.TotalCost,
		"new_period", period,
	)
}

// Stop stops the scheduler and waits for any running reset to complete.
func (s *ResetScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("reset scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is active.
func (s *ResetScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
