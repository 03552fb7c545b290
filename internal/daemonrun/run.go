// Package daemonrun wires configuration, logging, the state backend, the stage
// handlers and the ops server into one worker process. Both panelcastd and
// "panelcast worker" run through it.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"panelcast/internal/backend"
	"panelcast/internal/config"
	"panelcast/internal/daemon"
	"panelcast/internal/logging"
	"panelcast/internal/preflight"
	"panelcast/internal/queue"
	"panelcast/internal/video"
	"panelcast/internal/voice"
	"panelcast/internal/workflow"
)

// StageAll selects every stage.
const StageAll = "all"

// Options configures worker process runtime behavior.
type Options struct {
	// Stage is "voice", "video" or "all".
	Stage    string
	LogLevel string
	// SkipPreflight starts workers even when required checks fail.
	SkipPreflight bool
}

// ParseStages converts the --stage flag into queue kinds.
func ParseStages(value string) ([]queue.Kind, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == StageAll {
		return queue.Kinds(), nil
	}
	kind, err := queue.ParseKind(value)
	if err != nil {
		return nil, fmt.Errorf("stage must be voice, video, or all: %w", err)
	}
	return []queue.Kind{kind}, nil
}

// Run starts the worker runtime loop and blocks until ctx ends or a signal
// arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	stages, err := ParseStages(opts.Stage)
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(cfg, "worker-"+stageLabel(stages))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if err := runPreflight(signalCtx, cfg, logger, opts.SkipPreflight); err != nil {
		return err
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, fmt.Sprintf("panelcastd-%s.pid", stageLabel(stages)))
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	state, err := backend.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open state backend", logging.Error(err))
		return err
	}
	defer state.Close()

	coord := workflow.NewCoordinator(state.Status, state.Queue, logger)
	manager := workflow.NewManager(cfg, coord, state.Queue, logger)
	manager.ConfigureStages(BuildStages(cfg, logger, stages))

	d, err := daemon.New(cfg, logger, coord, manager, stages)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	if cfg.Metrics.Enabled {
		ops := daemon.NewOpsServer(cfg.Metrics.Bind, d)
		if err := ops.Start(signalCtx); err != nil {
			logging.WarnWithContext(logger, "ops server unavailable", "ops_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.bind is free"),
				logging.String(logging.FieldImpact, "metrics and health endpoints are not served"),
			)
		}
	}

	<-signalCtx.Done()
	logger.Info("panelcast worker shutting down", logging.String("stages", stageLabel(stages)))
	return nil
}

// BuildStages constructs the handlers for the selected stages.
func BuildStages(cfg *config.Config, logger *slog.Logger, stages []queue.Kind) workflow.StageSet {
	var set workflow.StageSet
	for _, kind := range stages {
		switch kind {
		case queue.KindVoice:
			set.Voice = voice.New(cfg, logger)
		case queue.KindVideo:
			set.Video = video.New(cfg, logger)
		}
	}
	return set
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger, skip bool) error {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.Bool("optional", r.Optional),
			logging.String(logging.FieldErrorHint, "run panelcast doctor"),
		)
	}
	failed := preflight.Failed(results)
	if len(failed) == 0 || skip {
		return nil
	}
	return fmt.Errorf("preflight failed: %s (run panelcast doctor for details)", strings.Join(failed, ", "))
}

func stageLabel(stages []queue.Kind) string {
	if len(stages) == len(queue.Kinds()) {
		return StageAll
	}
	names := make([]string, len(stages))
	for i, kind := range stages {
		names[i] = string(kind)
	}
	return strings.Join(names, "-")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
