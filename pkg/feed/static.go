package feed

import (
	"context"
	"sync"
)

// StaticFeed serves queued samples from memory. Each Fetch drains the
// queue. Used in tests and for manual cost injection.
type StaticFeed struct {
	name    string
	mu      sync.Mutex
	pending []Sample
	err     error
}

// NewStaticFeed creates an empty static feed.
func NewStaticFeed(name string) *StaticFeed {
	return &StaticFeed{name: name}
}

// Name identifies the feed.
func (f *StaticFeed) Name() string {
	return f.name
}

// Push queues samples for the next Fetch.
func (f *StaticFeed) Push(samples ...Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, samples...)
}

// Fail makes the next Fetch return err wrapped in ErrFeedUnavailable.
// Pass nil to restore normal operation.
func (f *StaticFeed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Fetch drains and returns the queued samples.
func (f *StaticFeed) Fetch(ctx context.Context) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(f.name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, unavailable(f.name, f.err)
	}
	out := f.pending
	f.pending = nil
	return out, nil
}
