package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"panelcast/internal/assemble"
	"panelcast/internal/batch"
	"panelcast/internal/config"
	"panelcast/internal/encoder"
	"panelcast/internal/logging"
	"panelcast/internal/narration"
	"panelcast/internal/queue"
	"panelcast/internal/render"
	"panelcast/internal/services"
	"panelcast/internal/stage"
	"panelcast/internal/status"
	"panelcast/internal/voice"
)

const stageName = "video"

// Stage renders and assembles chapter videos.
type Stage struct {
	cfg       *config.Config
	codecs    render.CodecSource
	renderer  batch.PanelRenderer
	assembler *assemble.Assembler
	progress  stage.ProgressFunc
	logger    *slog.Logger
}

// Option customises a Stage.
type Option func(*Stage)

// WithRenderer replaces the panel renderer.
func WithRenderer(r batch.PanelRenderer) Option {
	return func(s *Stage) { s.renderer = r }
}

// WithCodecSource replaces the encoder selector.
func WithCodecSource(c render.CodecSource) Option {
	return func(s *Stage) { s.codecs = c }
}

// New constructs the video stage handler.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	stageLogger := logging.NewComponentLogger(logger, "video")
	s := &Stage{
		cfg:       cfg,
		assembler: assemble.New(cfg, stageLogger),
		logger:    stageLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codecs == nil {
		s.codecs = encoder.NewSelector(cfg, stageLogger)
	}
	if s.renderer == nil {
		s.renderer = render.New(cfg, s.codecs, stageLogger)
	}
	return s
}

// SetProgressFunc installs the callback used for batch progress.
func (s *Stage) SetProgressFunc(fn stage.ProgressFunc) {
	s.progress = fn
}

// Prepare rejects payloads that are not a valid chapter.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	_, err := voice.DecodeChapter(stageName, job)
	return err
}

// Execute renders the chapter and assembles the survivors.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) (stage.Result, error) {
	chapter, err := voice.DecodeChapter(stageName, job)
	if err != nil {
		return stage.Result{}, err
	}
	logger := logging.WithContext(ctx, s.logger)

	selection := s.codecs.Select(ctx)
	logger.Info("rendering chapter",
		logging.String(logging.FieldChapter, chapter.Name),
		logging.Int(logging.FieldPanelCount, len(chapter.Panels)),
		logging.String("codec", string(selection.Codec)),
		logging.Int("concurrency", s.cfg.Render.Concurrency),
	)

	pipelineID := strings.TrimSpace(job.PipelineID)
	if pipelineID == "" {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "resolve clip dir", "job has no pipeline id", nil)
	}
	clipDir := s.cfg.ClipDir(pipelineID)
	if !s.cfg.Render.KeepClips {
		defer func() {
			if err := os.RemoveAll(clipDir); err != nil {
				logger.Warn("failed to remove intermediate clips", logging.Error(err), logging.String("clip_dir", clipDir))
			}
		}()
	}

	scheduler := batch.Scheduler{
		Renderer:   s.renderer,
		OutputPath: func(p narration.Panel) string { return ClipPath(clipDir, p.Index) },
		OnBatch:    func(p batch.Progress) { s.reportBatch(ctx, p) },
		Logger:     logger,
	}
	outcomes := scheduler.RenderAll(ctx, chapter.Panels, s.cfg.Render.Concurrency)
	if err := ctx.Err(); err != nil {
		return stage.Result{}, err
	}

	chapterVideo, err := s.assembler.Assemble(ctx, chapter.Name, outcomes)
	if err != nil {
		return stage.Result{}, err
	}
	payload, err := json.Marshal(chapterVideo)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "encode payload", "chapter video could not be serialized", err)
	}
	return stage.Result{Payload: payload, Message: CompletionMessage(chapterVideo)}, nil
}

func (s *Stage) reportBatch(ctx context.Context, p batch.Progress) {
	if s.progress == nil {
		return
	}
	message := fmt.Sprintf("Rendered batch %d of %d (%d of %d panels)", p.Batch, p.Batches, p.Completed, p.Total)
	if err := s.progress(ctx, BatchProgress(p), message); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record batch progress", "progress_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the status backend"),
			logging.String(logging.FieldImpact, "status shows stale batch progress"),
		)
	}
}

// BatchProgress maps a batch barrier onto the video stage's progress band.
// It never reaches the completion value.
func BatchProgress(p batch.Progress) int {
	if p.Batches <= 0 {
		return status.ProgressVideo
	}
	span := status.ProgressVideoDone - status.ProgressVideo - 1
	return status.ProgressVideo + span*p.Batch/p.Batches
}

// ClipPath is where the clip for panel index is rendered.
func ClipPath(clipDir string, index int) string {
	return filepath.Join(clipDir, fmt.Sprintf("panel_%d.mp4", index))
}

// CompletionMessage summarizes an assembled chapter.
func CompletionMessage(v assemble.ChapterVideo) string {
	if v.Empty {
		return fmt.Sprintf("No chapter video produced: rendered %d of %d panels", v.Rendered, v.Total)
	}
	return fmt.Sprintf("Chapter video ready: rendered %d of %d panels (%s)", v.Rendered, v.Total, v.FinalPath)
}

// HealthCheck verifies the ffmpeg and ffprobe binaries and output directory.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if s.cfg.Paths.OutputDir == "" {
		return stage.Unhealthy(stageName, "output directory not configured")
	}
	for _, bin := range []string{s.cfg.FFmpegBinary(), s.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(bin); err != nil {
			return stage.Unhealthy(stageName, fmt.Sprintf("%s not found", bin))
		}
	}
	return stage.Healthy(stageName)
}
