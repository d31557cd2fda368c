package feed

import (
	"context"
	"errors"
	"fmt"

	"athena-ops/governor/pkg/ledger"
)

// ErrFeedUnavailable is returned when a cost feed cannot be reached or
// returns an unusable payload. The governor treats the cycle as a zero
// delta and surfaces a warning.
var ErrFeedUnavailable = errors.New("cost feed unavailable")

// Sample is one increment of spend reported by a feed.
type Sample struct {
	// Service is the paid service the spend belongs to. Must be a member
	// of the ledger's fixed service set.
	Service ledger.Service `json:"service"`

	// Operation is the operation kind that incurred the spend, or empty
	// when the feed reports raw billing with no operation attribution.
	Operation ledger.OperationKind `json:"operation,omitempty"`

	// Amount is the incremental cost in USD since the previous fetch.
	Amount float64 `json:"amount"`
}

// Feed reports incremental spend per service and operation.
type Feed interface {
	// Name identifies the feed in logs and metrics.
	Name() string

	// Fetch returns the spend samples accumulated since the previous
	// call. Unreachable sources return an error wrapping
	// ErrFeedUnavailable.
	Fetch(ctx context.Context) ([]Sample, error)
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%w: feed %q: %v", ErrFeedUnavailable, name, err)
}
