package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"panelcast/internal/database"
)

const sqlitePollInterval = 200 * time.Millisecond

// SQLiteQueue stores jobs in the stage_jobs table.
type SQLiteQueue struct {
	db   *database.DB
	now  func() time.Time
	poll time.Duration
}

// NewSQLiteQueue wraps an opened database.
func NewSQLiteQueue(db *database.DB) *SQLiteQueue {
	return &SQLiteQueue{db: db, now: time.Now, poll: sqlitePollInterval}
}

// Enqueue inserts job at the end of its kind.
func (s *SQLiteQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	stampJob(&job, s.now)
	_, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO stage_jobs (id, pipeline_id, kind, payload, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.PipelineID, string(job.Kind), string(job.Payload), database.FormatTime(job.EnqueuedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue polls until a job of kind is available or wait elapses.
func (s *SQLiteQueue) Dequeue(ctx context.Context, kind Kind, wait time.Duration) (*Job, error) {
	deadline := time.Now().Add(wait)
	for {
		job, err := s.claim(ctx, kind)
		if err != nil || job != nil {
			return job, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		delay := s.poll
		if remaining < delay {
			delay = remaining
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *SQLiteQueue) claim(ctx context.Context, kind Kind) (*Job, error) {
	var (
		job        Job
		jobKind    string
		payload    string
		enqueuedAt string
	)
	err := database.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`DELETE FROM stage_jobs
             WHERE seq = (SELECT seq FROM stage_jobs WHERE kind = ? ORDER BY seq LIMIT 1)
             RETURNING id, pipeline_id, kind, payload, enqueued_at`,
			string(kind),
		).Scan(&job.ID, &job.PipelineID, &jobKind, &payload, &enqueuedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim %s job: %w", kind, err)
	}
	job.Kind = Kind(jobKind)
	job.Payload = []byte(payload)
	job.EnqueuedAt = database.ParseTime(enqueuedAt)
	return &job, nil
}

// Depth counts waiting jobs of kind.
func (s *SQLiteQueue) Depth(ctx context.Context, kind Kind) (int64, error) {
	var count int64
	err := database.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM stage_jobs WHERE kind = ?`, string(kind)).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count %s jobs: %w", kind, err)
	}
	return count, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLiteQueue) Close() error { return nil }
