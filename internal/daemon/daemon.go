package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"panelcast/internal/config"
	"panelcast/internal/logging"
	"panelcast/internal/queue"
	"panelcast/internal/workflow"
)

// Daemon coordinates the stage workers and enforces single-instance execution
// per stage set.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	coord    *workflow.Coordinator
	workflow *workflow.Manager
	stages   []queue.Kind

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Stages       []queue.Kind
	LockFilePath string
	Workflow     workflow.StatusSummary
}

// New constructs a daemon running the lanes named by stages.
func New(cfg *config.Config, logger *slog.Logger, coord *workflow.Coordinator, wf *workflow.Manager, stages []queue.Kind) (*Daemon, error) {
	if cfg == nil || coord == nil || wf == nil {
		return nil, errors.New("daemon requires config, coordinator, and workflow manager")
	}
	if len(stages) == 0 {
		return nil, errors.New("daemon requires at least one stage")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := LockPath(cfg, stages)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		coord:    coord,
		workflow: wf,
		stages:   slices.Clone(stages),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath names the lock file guarding a stage set.
func LockPath(cfg *config.Config, stages []queue.Kind) string {
	names := make([]string, len(stages))
	for i, kind := range stages {
		names[i] = string(kind)
	}
	slices.Sort(names)
	return filepath.Join(cfg.Paths.StateDir, fmt.Sprintf("panelcastd-%s.lock", strings.Join(names, "-")))
}

// Start acquires the lock and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another panelcast worker already runs %s (lock %s)", d.stageLabel(), d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("panelcast worker started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("stages", d.stageLabel()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop stops background processing and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("panelcast worker stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Stages:       slices.Clone(d.stages),
		LockFilePath: d.lockPath,
		Workflow:     d.workflow.Status(ctx),
	}
}

func (d *Daemon) stageLabel() string {
	names := make([]string, len(d.stages))
	for i, kind := range d.stages {
		names[i] = string(kind)
	}
	return strings.Join(names, "+")
}
