package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"panelcast/internal/backend"
	"panelcast/internal/config"
	"panelcast/internal/database"
	"panelcast/internal/deps"
)

const backendCheckTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinaries reports the external tools the stages execute.
func CheckBinaries(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		detail := s.Command
		if !s.Available {
			detail = s.Detail
		}
		results = append(results, Result{Name: s.Name, Passed: s.Available, Optional: s.Optional, Detail: detail})
	}
	return results
}

// CheckBackend verifies the configured status and queue backend is reachable.
func CheckBackend(ctx context.Context, cfg *config.Config) Result {
	name := "State backend (" + cfg.Store.Backend + ")"

	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	switch cfg.Store.Backend {
	case backend.BackendRedis:
		client, err := backend.OpenRedis(checkCtx, cfg.Redis)
		if err != nil {
			return Result{Name: name, Detail: summarizeRedisError(cfg.Redis.Addr, err)}
		}
		_ = client.Close()
		return Result{Name: name, Passed: true, Detail: cfg.Redis.Addr + " (ping ok)"}
	case backend.BackendSQLite:
		db, err := database.Open(cfg.SQLitePath())
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.SQLitePath(), err)}
		}
		_ = db.Close()
		return Result{Name: name, Passed: true, Detail: cfg.SQLitePath() + " (schema ok)"}
	case backend.BackendMemory:
		return Result{Name: name, Passed: true, Detail: "process-local; status is not shared between processes"}
	default:
		return Result{Name: name, Detail: "unknown backend"}
	}
}

func summarizeRedisError(addr string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s (error: ping timed out)", addr)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s (error: unreachable)", addr)
	}
	return fmt.Sprintf("%s (error: %v)", addr, err)
}
