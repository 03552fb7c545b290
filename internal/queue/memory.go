package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is a process-local queue.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   map[Kind][]Job
	notify chan struct{}
	now    func() time.Time
}

// NewMemoryQueue returns an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:   make(map[Kind][]Job),
		notify: make(chan struct{}),
		now:    time.Now,
	}
}

// Enqueue appends job and wakes any waiting consumers.
func (m *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	stampJob(&job, m.now)
	m.mu.Lock()
	m.jobs[job.Kind] = append(m.jobs[job.Kind], job)
	close(m.notify)
	m.notify = make(chan struct{})
	m.mu.Unlock()
	return nil
}

// Dequeue pops the oldest job of kind.
func (m *MemoryQueue) Dequeue(ctx context.Context, kind Kind, wait time.Duration) (*Job, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		m.mu.Lock()
		if pending := m.jobs[kind]; len(pending) > 0 {
			job := pending[0]
			m.jobs[kind] = pending[1:]
			m.mu.Unlock()
			return &job, nil
		}
		wake := m.notify
		m.mu.Unlock()

		select {
		case <-wake:
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Depth reports the pending count for kind.
func (m *MemoryQueue) Depth(_ context.Context, kind Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.jobs[kind])), nil
}

// Close is a no-op.
func (m *MemoryQueue) Close() error { return nil }
