package memsink

import (
	"context"
	"errors"
	"time"
)

// ErrSinkUnavailable is returned when the sink's backing store cannot be
// reached. Escalation logging is best effort; callers log and continue.
var ErrSinkUnavailable = errors.New("memory sink unavailable")

// Record is a single stored memory.
type Record struct {
	// ID is a generated unique identifier.
	ID string

	// UserID scopes the record to one agent identity.
	UserID string

	// Content is the memory text.
	Content string

	// Metadata carries structured context (event type, levels, totals).
	Metadata map[string]string

	// CreatedAt is when the record was stored.
	CreatedAt time.Time
}

// Sink is the memory capability the governor depends on.
type Sink interface {
	// Add stores a memory and returns the stored record.
	Add(ctx context.Context, content, userID string, metadata map[string]string) (*Record, error)

	// Search returns up to limit records for userID whose content
	// matches query, most recent first.
	Search(ctx context.Context, query, userID string, limit int) ([]*Record, error)
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
