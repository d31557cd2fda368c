package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"athena-ops/governor/pkg/ledger"
)

// Recorder receives cost samples. Satisfied by the budget governor.
type Recorder interface {
	RecordCost(ctx context.Context, service ledger.Service, kind ledger.OperationKind, amount float64) error
}

// Poller periodically fetches every configured feed and records the
// samples with the governor.
type Poller struct {
	feeds    []Feed
	recorder Recorder
	interval time.Duration
	logger   *slog.Logger
}

// PollerConfig configures the poller.
type PollerConfig struct {
	// Interval is how often all feeds are fetched.
	// Default: 1 minute
	Interval time.Duration

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewPoller creates a poller over the given feeds.
func NewPoller(recorder Recorder, feeds []Feed, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		feeds:    feeds,
		recorder: recorder,
		interval: cfg.Interval,
		logger:   logger.With("component", "feed.poller"),
	}
}

// Run polls until the context is cancelled. A failing feed never stops
// the loop: the cycle records zero delta for it and logs a warning so the
// outage is visible rather than mistaken for intentional zero spend.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("cost feed poller started",
		"feeds", len(p.feeds),
		"interval", p.interval,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("cost feed poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches every feed once and records the samples.
func (p *Poller) PollOnce(ctx context.Context) {
	for _, f := range p.feeds {
		samples, err := f.Fetch(ctx)
		if err != nil {
			if errors.Is(err, ErrFeedUnavailable) {
				p.logger.Warn("cost feed unreachable, assuming zero delta this cycle",
					"feed", f.Name(),
					"error", err,
				)
				continue
			}
			p.logger.Error("cost feed fetch failed",
				"feed", f.Name(),
				"error", err,
			)
			continue
		}

		for _, s := range samples {
			if err := p.recorder.RecordCost(ctx, s.Service, s.Operation, s.Amount); err != nil {
				// Unknown service or operation here means the relay is
				// misconfigured; this is fatal-grade, not retriable.
				p.logger.Error("failed to record cost sample",
					"feed", f.Name(),
					"service", string(s.Service),
					"operation", string(s.Operation),
					"amount", s.Amount,
					"error", err,
				)
			}
		}
	}
}
