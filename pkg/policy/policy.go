package policy

import (
	"errors"
	"fmt"
	"sort"

	"athena-ops/governor/pkg/ledger"
)

// ErrInvalidConfig is returned for a non-positive daily limit or a
// malformed threshold table. This is a configuration error, fatal at
// startup and never retried.
var ErrInvalidConfig = errors.New("invalid budget policy configuration")

// Threshold binds a fraction of the daily limit to the level reached when
// spend crosses it.
type Threshold struct {
	// Fraction is the spend ratio (total / daily limit) at which Level
	// applies. 1.0 is the full daily limit; values above 1.0 describe
	// overspend tolerance.
	Fraction float64

	// Level is the escalation level in force at or above Fraction.
	Level Level
}

// Config is the fixed-per-deployment budget policy.
type Config struct {
	// DailyLimit is the spending ceiling for one tracking period, in USD.
	// Must be positive.
	DailyLimit float64

	// Thresholds maps limit fractions to escalation levels, e.g.
	// {0.5: alert, 0.8: reduced_frequency, 1.0: emergency, 1.2: shutdown}.
	Thresholds []Threshold
}

// DefaultThresholds returns the standard escalation ladder.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Fraction: 0.5, Level: LevelAlert},
		{Fraction: 0.8, Level: LevelReducedFrequency},
		{Fraction: 1.0, Level: LevelEmergency},
		{Fraction: 1.2, Level: LevelShutdown},
	}
}

// Validate checks the configuration. It is called once at startup;
// Evaluate assumes a validated config but still guards the limit itself.
func (c Config) Validate() error {
	if c.DailyLimit <= 0 {
		return fmt.Errorf("%w: daily limit must be positive, got %.4f", ErrInvalidConfig, c.DailyLimit)
	}
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("%w: at least one threshold is required", ErrInvalidConfig)
	}
	for _, t := range c.Thresholds {
		if t.Fraction <= 0 {
			return fmt.Errorf("%w: threshold fraction must be positive, got %.4f", ErrInvalidConfig, t.Fraction)
		}
		if t.Level <= LevelNormal || t.Level > LevelShutdown {
			return fmt.Errorf("%w: threshold level %q is not an escalation level", ErrInvalidConfig, t.Level)
		}
	}
	return nil
}

// Evaluate maps a ledger snapshot to an escalation level.
//
// The spend ratio is snapshot total over the daily limit; the result is
// the highest level among thresholds whose fraction is <= the ratio, or
// LevelNormal when no threshold is reached. Deterministic and
// side-effect-free: repeated calls with the same inputs return the same
// level.
func Evaluate(snap ledger.Snapshot, cfg Config) (Level, error) {
	if cfg.DailyLimit <= 0 {
		return LevelNormal, fmt.Errorf("%w: daily limit must be positive, got %.4f", ErrInvalidConfig, cfg.DailyLimit)
	}

	ratio := snap.TotalCost / cfg.DailyLimit

	// Thresholds are evaluated in ascending fraction order so the last
	// crossed one wins. The input order is not trusted.
	sorted := make([]Threshold, len(cfg.Thresholds))
	copy(sorted, cfg.Thresholds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Fraction < sorted[j].Fraction })

	level := LevelNormal
	for _, t := range sorted {
		if ratio >= t.Fraction && t.Level > level {
			level = t.Level
		}
	}
	return level, nil
}
