package memsink

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySink implements Sink using an in-memory slice per user. Records
// survive only for the process lifetime. Suitable for development and for
// deployments where the external memory service is absent.
//
// MemorySink is thread-safe using sync.RWMutex.
type MemorySink struct {
	records map[string][]*Record
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		records: make(map[string][]*Record),
		now:     time.Now,
	}
}

// Add stores a memory record.
func (m *MemorySink) Add(ctx context.Context, content, userID string, metadata map[string]string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Metadata:  cloneMetadata(metadata),
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.records[userID] = append(m.records[userID], rec)
	m.mu.Unlock()

	// Return a copy so callers cannot mutate stored state.
	out := *rec
	out.Metadata = cloneMetadata(rec.Metadata)
	return &out, nil
}

// Search returns records whose content contains query (case-insensitive),
// most recent first. An empty query matches everything.
func (m *MemorySink) Search(ctx context.Context, query, userID string, limit int) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	stored := m.records[userID]

	var out []*Record
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		rec := stored[i]
		if needle != "" && !strings.Contains(strings.ToLower(rec.Content), needle) {
			continue
		}
		cp := *rec
		cp.Metadata = cloneMetadata(rec.Metadata)
		out = append(out, &cp)
	}
	return out, nil
}

// Len returns the number of records stored for userID.
func (m *MemorySink) Len(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[userID])
}
