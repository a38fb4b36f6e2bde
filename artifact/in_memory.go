package artifact

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is a trivial in‑process Store implementation useful for
// tests, examples and single‑process prototypes. It keeps all artifacts in a
// nested map guarded by an RWMutex. Data is copied on save / retrieval to
// avoid accidental external mutation of internal buffers.
//
// Layout: runID -> role -> raw bytes
//
// This implementation is intentionally minimal; it does not enforce retention
// limits, size quotas, or eviction. For output that should survive the
// process, use FileStore or a durable backend.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte // runID -> role -> data
}

// NewInMemoryStore returns an empty in‑memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes for the given run and role.
// The input slice is copied before storage.
func (a *InMemoryStore) Save(_ context.Context, runID, role string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.artifacts[runID]; !exists {
		a.artifacts[runID] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[runID][role] = cp
	return fmt.Sprintf("mem://%s/%s", runID, role), nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(_ context.Context, runID, role string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, role)
	}
	data, ok := m[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, role)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the roles stored for the run. The slice is a snapshot and safe
// for caller mutation.
func (a *InMemoryStore) List(_ context.Context, runID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[runID]
	if !ok {
		return []string{}, nil
	}
	roles := make([]string, 0, len(m))
	for role := range m {
		roles = append(roles, role)
	}
	return roles, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(_ context.Context, runID, role string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.artifacts[runID]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, runID, role)
	}
	if _, ok := m[role]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, runID, role)
	}
	delete(m, role)
	return nil
}
