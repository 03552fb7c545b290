package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"panelcast/internal/database"
)

// SQLiteStore persists instances in the pipeline_status table.
type SQLiteStore struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLiteStore wraps an opened database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get loads the instance for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Instance, error) {
	var (
		inst      Instance
		stage     string
		message   sql.NullString
		updatedAt string
	)
	err := database.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT id, stage, progress, message, updated_at FROM pipeline_status WHERE id = ?`, id,
		).Scan(&inst.ID, &stage, &inst.Progress, &message, &updatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, ErrNotFound
	}
	if err != nil {
		return Instance{}, fmt.Errorf("query status %s: %w", id, err)
	}
	if inst.Stage, err = ParseStage(stage); err != nil {
		return Instance{}, fmt.Errorf("decode status %s: %w", id, err)
	}
	if message.Valid {
		inst.Message = message.String
	}
	inst.UpdatedAt = database.ParseTime(updatedAt)
	return inst, nil
}

// Set upserts inst.
func (s *SQLiteStore) Set(ctx context.Context, inst Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if inst.UpdatedAt.IsZero() {
		inst.UpdatedAt = s.now().UTC()
	}
	_, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO pipeline_status (id, stage, progress, message, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             stage = excluded.stage,
             progress = excluded.progress,
             message = excluded.message,
             updated_at = excluded.updated_at`,
		inst.ID, string(inst.Stage), inst.Progress, inst.Message, database.FormatTime(inst.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert status %s: %w", inst.ID, err)
	}
	return nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLiteStore) Close() error { return nil }
