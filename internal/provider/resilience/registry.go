package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Health is a point-in-time view of one upstream provider.
type Health struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the provider's circuit is closed.
func (h Health) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Registry tracks the resilient clients of all upstream providers so the ops
// endpoints can report per-provider health.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*registryEntry
}

type registryEntry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Register adds a client under its provider name. Registration order is
// preserved in health listings.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := client.Name()
	if _, ok := r.entries[name]; !ok {
		r.order = append(r.order, name)
	}
	r.entries[name] = &registryEntry{client: client}
}

// RecordSuccess notes a successful provider call.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		now := time.Now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed provider call with its error.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		now := time.Now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// GetHealth returns the health of one provider, or ok=false if unknown.
func (r *Registry) GetHealth(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Health{}, false
	}
	return r.healthLocked(name, e), true
}

// AllHealth returns the health of every registered provider in registration
// order.
func (r *Registry) AllHealth() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Health, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.healthLocked(name, r.entries[name]))
	}
	return out
}

func (r *Registry) healthLocked(name string, e *registryEntry) Health {
	return Health{
		Name:          name,
		CircuitState:  e.client.BreakerState(),
		Counts:        e.client.BreakerCounts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
