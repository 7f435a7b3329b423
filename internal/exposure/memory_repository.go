package exposure

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory Repository for tests and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// NewInMemoryRepository creates an empty in-memory exposure repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// LoadLog implements Repository.
func (r *InMemoryRepository) LoadLog(_ context.Context) ([]LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

// SaveLog implements Repository.
func (r *InMemoryRepository) SaveLog(_ context.Context, entries []LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make([]LogEntry, len(entries))
	copy(r.entries, entries)
	return nil
}
