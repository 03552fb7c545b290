package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"panelcast/internal/config"
	"panelcast/internal/logging"
	"panelcast/internal/metrics"
	"panelcast/internal/narration"
	"panelcast/internal/procgroup"
	"panelcast/internal/render"
	"panelcast/internal/services"
	"panelcast/internal/textutil"
)

const (
	stageName  = "video"
	killGrace  = 5 * time.Second
	tailLines  = 6
	tailBytes  = 4096
	outputMode = 0o755
)

// ChapterVideo is the result of assembling a chapter. Exactly one of
// FinalPath or Empty is set.
type ChapterVideo struct {
	ChapterName  string `json:"chapterName"`
	FinalPath    string `json:"finalPath,omitempty"`
	Empty        bool   `json:"empty,omitempty"`
	ManifestPath string `json:"manifestPath,omitempty"`
	Rendered     int    `json:"rendered"`
	Total        int    `json:"total"`
}

// Assembler runs ffmpeg concat for chapters.
type Assembler struct {
	ffmpeg    string
	outputDir string
	workDir   string
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an Assembler from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		ffmpeg:    cfg.FFmpegBinary(),
		outputDir: cfg.Paths.OutputDir,
		workDir:   cfg.Paths.WorkDir,
		logger:    logger,
		now:       time.Now,
	}
}

// OutputPath returns where the video for chapterName is written.
func (a *Assembler) OutputPath(chapterName string) string {
	return filepath.Join(a.outputDir, narration.SafeName(chapterName)+".mp4")
}

// Assemble joins the rendered outcomes in index order. ffmpeg failures are
// returned as errors; an all-failed chapter is not one.
func (a *Assembler) Assemble(ctx context.Context, chapterName string, outcomes []render.Outcome) (ChapterVideo, error) {
	rendered := Survivors(outcomes)
	video := ChapterVideo{
		ChapterName: chapterName,
		Rendered:    len(rendered),
		Total:       len(outcomes),
	}

	if err := os.MkdirAll(a.outputDir, outputMode); err != nil {
		return ChapterVideo{}, services.Wrap(services.ErrConfiguration, stageName, "prepare output", a.outputDir, err)
	}

	if len(rendered) == 0 {
		video.Empty = true
		metrics.ObserveAssemble("empty")
		// A video left by an earlier run must not outlive an empty result.
		stale := a.OutputPath(chapterName)
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ChapterVideo{}, services.Wrap(services.ErrTransient, stageName, "remove stale video", stale, err)
		}
		logging.WarnWithContext(a.logger, "no panels rendered; chapter video skipped", "chapter_empty",
			logging.String(logging.FieldChapter, chapterName),
			logging.Int(logging.FieldPanelCount, len(outcomes)),
			logging.String(logging.FieldErrorHint, "check the panel render failures above"),
			logging.String(logging.FieldImpact, "no video is produced for this chapter"),
		)
	} else {
		finalPath := a.OutputPath(chapterName)
		if err := a.concat(ctx, rendered, finalPath); err != nil {
			metrics.ObserveAssemble("failed")
			return ChapterVideo{}, err
		}
		video.FinalPath = finalPath
		metrics.ObserveAssemble("assembled")
		a.logger.Info("chapter assembled",
			logging.String(logging.FieldChapter, chapterName),
			logging.String("path", finalPath),
			logging.Int("rendered", len(rendered)),
			logging.Int(logging.FieldPanelCount, len(outcomes)),
		)
	}

	manifestPath := filepath.Join(a.outputDir, narration.SafeName(chapterName)+".json")
	if err := writeManifest(manifestPath, newManifest(video, outcomes, a.now())); err != nil {
		return ChapterVideo{}, services.Wrap(services.ErrTransient, stageName, "write manifest", manifestPath, err)
	}
	video.ManifestPath = manifestPath
	return video, nil
}

// usable reports whether an outcome can be concatenated.
func usable(o render.Outcome) bool {
	return o.OK() && o.ClipPath != ""
}

// Survivors returns the rendered outcomes sorted by panel index.
func Survivors(outcomes []render.Outcome) []render.Outcome {
	rendered := make([]render.Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if usable(o) {
			rendered = append(rendered, o)
		}
	}
	slices.SortStableFunc(rendered, func(a, b render.Outcome) int { return a.Index - b.Index })
	return rendered
}

// ConcatList renders the concat demuxer list for paths. Single quotes are
// closed, escaped, and reopened.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func (a *Assembler) concat(ctx context.Context, rendered []render.Outcome, finalPath string) error {
	paths := make([]string, 0, len(rendered))
	for _, o := range rendered {
		abs, err := filepath.Abs(o.ClipPath)
		if err != nil {
			return services.Wrap(services.ErrValidation, stageName, "resolve clip", o.ClipPath, err)
		}
		paths = append(paths, abs)
	}

	if err := os.MkdirAll(a.workDir, outputMode); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare work dir", a.workDir, err)
	}
	list, err := os.CreateTemp(a.workDir, "concat-*.txt")
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "create concat list", "", err)
	}
	listPath := list.Name()
	defer os.Remove(listPath)

	if _, err := io.WriteString(list, ConcatList(paths)); err != nil {
		_ = list.Close()
		return services.Wrap(services.ErrTransient, stageName, "write concat list", listPath, err)
	}
	if err := list.Close(); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "close concat list", listPath, err)
	}

	// finalPath is replaced only after ffmpeg succeeds.
	pending, err := renameio.NewPendingFile(finalPath, renameio.WithPermissions(0o644))
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "create pending video", finalPath, err)
	}
	defer pending.Cleanup()

	tail := textutil.NewTail(tailBytes)
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", "-f", "mp4", "-y", pending.Name(),
	)
	procgroup.Bind(cmd, killGrace)
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	if err := cmd.Run(); err != nil {
		detail := tail.LastLines(tailLines)
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, stageName, "concat",
			fmt.Sprintf("ffmpeg concat of %d clips failed: %s", len(paths), detail), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "replace video", finalPath, err)
	}
	return nil
}
