package status

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps instances in process memory. It is only visible to
// workers running in the same process.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]Instance
	now       func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[string]Instance), now: time.Now}
}

// Get returns the instance for id.
func (m *MemoryStore) Get(_ context.Context, id string) (Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return Instance{}, ErrNotFound
	}
	return inst, nil
}

// Set stores inst, stamping UpdatedAt when it is zero.
func (m *MemoryStore) Set(_ context.Context, inst Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if inst.UpdatedAt.IsZero() {
		inst.UpdatedAt = m.now().UTC()
	}
	m.mu.Lock()
	m.instances[inst.ID] = inst
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
