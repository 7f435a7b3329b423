package cache

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for tests
// and single-process deployments.
type InMemoryRepository struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save overwrites the slot.
func (r *InMemoryRepository) Save(_ context.Context, snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *snapshot
	r.snapshot = &copied
	return nil
}

// Load returns the stored snapshot, or ErrEmpty.
func (r *InMemoryRepository) Load(_ context.Context) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return nil, ErrEmpty
	}
	copied := *r.snapshot
	return &copied, nil
}
