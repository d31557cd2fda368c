package config

import (
	"fmt"

	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/policy"
)

// PolicyConfig converts the budget section into the policy engine's
// configuration. Unknown level names are reported rather than coerced,
// so the two layers cannot disagree if their validation rules drift.
func (c BudgetConfig) PolicyConfig() (policy.Config, error) {
	out := policy.Config{
		DailyLimit: c.DailyLimit,
		Thresholds: make([]policy.Threshold, 0, len(c.Thresholds)),
	}
	for _, t := range c.Thresholds {
		level, err := policy.ParseLevel(t.Level)
		if err != nil {
			return policy.Config{}, fmt.Errorf("budget threshold at %.2f: %w", t.Fraction, err)
		}
		out.Thresholds = append(out.Thresholds, policy.Threshold{
			Fraction: t.Fraction,
			Level:    level,
		})
	}
	return out, nil
}

// EssentialKinds converts the essential operation names into typed
// operation kinds.
func (c BudgetConfig) EssentialKinds() []ledger.OperationKind {
	out := make([]ledger.OperationKind, 0, len(c.EssentialOperations))
	for _, op := range c.EssentialOperations {
		out = append(out, ledger.OperationKind(op))
	}
	return out
}
