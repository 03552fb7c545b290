package queue

import (
	"context"
	"io"
	"time"
)

// Queue moves jobs between producers and stage workers.
type Queue interface {
	// Enqueue appends job to the FIFO for job.Kind.
	Enqueue(ctx context.Context, job Job) error
	// Dequeue removes the oldest job of kind, waiting up to wait for one to
	// arrive. It returns nil, nil when the wait elapses.
	Dequeue(ctx context.Context, kind Kind, wait time.Duration) (*Job, error)
	// Depth reports how many jobs of kind are waiting.
	Depth(ctx context.Context, kind Kind) (int64, error)
	io.Closer
}

func stampJob(job *Job, now func() time.Time) {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = now().UTC()
	}
}
