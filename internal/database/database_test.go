package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"panelcast/internal/database"
)

func TestOpenCreatesSchemaOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "panelcast.db")

	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	var tables int
	if err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name IN ('pipeline_status','stage_jobs')").Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 2 {
		t.Fatalf("expected 2 tables, got %d", tables)
	}
	if db.Path() != path {
		t.Fatalf("unexpected path %q", db.Path())
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := database.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panelcast.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := db.ExecWithRetry(context.Background(), "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := database.Open(path); !errors.Is(err, database.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := database.RetryOnBusy(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected single attempt with boom, got calls=%d err=%v", calls, err)
	}
}

func TestRetryOnBusyRetriesLockedDatabase(t *testing.T) {
	calls := 0
	err := database.RetryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got calls=%d err=%v", calls, err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 500, time.UTC)
	if got := database.ParseTime(database.FormatTime(now)); !got.Equal(now) {
		t.Fatalf("time mismatch: %v vs %v", got, now)
	}
	if !database.ParseTime("").IsZero() {
		t.Fatal("expected zero time for empty value")
	}
}
