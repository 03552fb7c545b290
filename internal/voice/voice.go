package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"panelcast/internal/config"
	"panelcast/internal/logging"
	"panelcast/internal/narration"
	"panelcast/internal/procgroup"
	"panelcast/internal/queue"
	"panelcast/internal/services"
	"panelcast/internal/stage"
	"panelcast/internal/textutil"
)

const (
	stageName       = "voice"
	outputToken     = "{output}"
	stderrTailBytes = 4096
	stderrTailLines = 4
	killGrace       = 5 * time.Second
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Source records where a panel's audio came from.
type Source string

const (
	SourceExplicit     Source = "explicit"
	SourceConventional Source = "conventional"
	SourceSynthesized  Source = "synthesized"
	SourceMissing      Source = "missing"
)

// Summary counts how each panel's audio was resolved.
type Summary struct {
	Total    int
	Resolved int
	Sources  map[Source]int
}

// Stage resolves narration audio for a chapter.
type Stage struct {
	audioDir string
	command  []string
	timeout  time.Duration
	logger   *slog.Logger
}

// New constructs the voice stage handler.
func New(cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		audioDir: cfg.Paths.AudioDir,
		command:  append([]string(nil), cfg.Voice.Command...),
		timeout:  time.Duration(cfg.Voice.TimeoutSeconds) * time.Second,
		logger:   logging.NewComponentLogger(logger, "voice"),
	}
}

// Prepare rejects payloads that are not a valid chapter.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	_, err := DecodeChapter(stageName, job)
	return err
}

// Execute resolves every panel's audio and returns the resolved chapter.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) (stage.Result, error) {
	chapter, err := DecodeChapter(stageName, job)
	if err != nil {
		return stage.Result{}, err
	}
	resolved, summary, err := s.Resolve(ctx, chapter)
	if err != nil {
		return stage.Result{}, err
	}
	logging.WithContext(ctx, s.logger).Info("narration audio resolved",
		logging.String(logging.FieldChapter, chapter.Name),
		logging.Int(logging.FieldPanelCount, summary.Total),
		logging.Int("resolved", summary.Resolved),
		logging.Int("synthesized", summary.Sources[SourceSynthesized]),
		logging.Int("missing", summary.Sources[SourceMissing]),
	)
	payload, err := EncodeChapter(stageName, resolved)
	if err != nil {
		return stage.Result{}, err
	}
	return stage.Result{
		Payload: payload,
		Message: fmt.Sprintf("Resolved narration for %d of %d panels", summary.Resolved, summary.Total),
	}, nil
}

// Resolve fills in AudioPath for every panel it can. Unresolved panels keep an
// empty path. At least one panel must resolve.
func (s *Stage) Resolve(ctx context.Context, chapter narration.Chapter) (narration.Chapter, Summary, error) {
	out := chapter.Clone()
	summary := Summary{Total: len(out.Panels), Sources: make(map[Source]int, 4)}
	logger := logging.WithContext(ctx, s.logger)
	dirs := chapterDirs(chapter.Name)

	for i := range out.Panels {
		if err := ctx.Err(); err != nil {
			return narration.Chapter{}, summary, err
		}
		panel := &out.Panels[i]
		path, source, detail := s.resolvePanel(ctx, dirs, *panel)
		attrs := logging.PanelAttrs(chapter.Name, panel.Index, len(out.Panels))
		summary.Sources[source]++
		if source == SourceMissing {
			panel.AudioPath = ""
			logging.WarnWithContext(logger, "narration audio unavailable", "voice_audio_missing",
				append(attrs,
					logging.String("detail", detail),
					logging.String(logging.FieldErrorHint, "provide audioArtifactPath, place the file under audio_dir, or configure voice.command"),
					logging.String(logging.FieldImpact, "panel is skipped in the chapter video"),
				)...,
			)
			continue
		}
		panel.AudioPath = path
		summary.Resolved++
		logger.Debug("panel audio resolved", logging.Args(append(attrs,
			logging.String("source", string(source)),
			logging.String("audio", path),
		)...)...)
	}

	if summary.Resolved == 0 {
		return narration.Chapter{}, summary, services.Wrap(
			services.ErrValidation,
			stageName,
			"resolve audio",
			fmt.Sprintf("no narration audio could be resolved for %d panels of chapter %q", summary.Total, chapter.Name),
			nil,
		)
	}
	return out, summary, nil
}

// ConventionalPath is where panel audio is expected under the audio directory.
func ConventionalPath(audioDir, safeChapter string, index int) string {
	return filepath.Join(audioDir, safeChapter, fmt.Sprintf("panel_%d.mp3", index+1))
}

// chapterDirs lists the audio directories probed for a chapter. SafeName comes
// first and is where synthesized audio lands; audio laid out by older tooling
// under the whitespace-to-underscore spelling is still found.
func chapterDirs(name string) []string {
	safe := narration.SafeName(name)
	legacy := whitespaceRun.ReplaceAllString(name, "_")
	if legacy == safe {
		return []string{safe}
	}
	return []string{safe, legacy}
}

func (s *Stage) resolvePanel(ctx context.Context, dirs []string, panel narration.Panel) (string, Source, string) {
	if explicit := strings.TrimSpace(panel.AudioPath); explicit != "" {
		if fileExists(explicit) {
			return explicit, SourceExplicit, ""
		}
		return "", SourceMissing, fmt.Sprintf("audio artifact %s does not exist", explicit)
	}

	for _, dir := range dirs {
		if candidate := ConventionalPath(s.audioDir, dir, panel.Index); fileExists(candidate) {
			return candidate, SourceConventional, ""
		}
	}
	conventional := ConventionalPath(s.audioDir, dirs[0], panel.Index)

	if len(s.command) == 0 {
		return "", SourceMissing, fmt.Sprintf("no audio at %s and no synthesizer configured", conventional)
	}
	if strings.TrimSpace(panel.NarrationText) == "" {
		return "", SourceMissing, "panel has no narration text to synthesize"
	}
	if err := s.synthesize(ctx, panel.NarrationText, conventional); err != nil {
		return "", SourceMissing, err.Error()
	}
	return conventional, SourceSynthesized, ""
}

// synthesize runs the configured command with text on stdin. Every argument
// equal to or containing the output token is rewritten to target.
func (s *Stage) synthesize(ctx context.Context, text, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare audio dir: %w", err)
	}
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := SynthArgs(s.command[1:], target)
	tail := textutil.NewTail(stderrTailBytes)
	cmd := exec.CommandContext(runCtx, s.command[0], args...)
	procgroup.Bind(cmd, killGrace)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	if err := cmd.Run(); err != nil {
		_ = os.Remove(target)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("synthesizer timed out after %s", s.timeout)
		}
		if detail := tail.LastLines(stderrTailLines); detail != "" {
			return fmt.Errorf("synthesizer failed: %s", detail)
		}
		return fmt.Errorf("synthesizer failed: %w", err)
	}
	if !fileExists(target) {
		return fmt.Errorf("synthesizer produced no audio at %s", target)
	}
	return nil
}

// SynthArgs substitutes target for the output token in args.
func SynthArgs(args []string, target string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = strings.ReplaceAll(arg, outputToken, target)
	}
	return out
}

// HealthCheck verifies the audio directory and the synthesizer binary.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if strings.TrimSpace(s.audioDir) == "" {
		return stage.Unhealthy(stageName, "audio directory not configured")
	}
	if len(s.command) > 0 {
		if _, err := exec.LookPath(s.command[0]); err != nil {
			return stage.Unhealthy(stageName, fmt.Sprintf("synthesizer %q not found", s.command[0]))
		}
	}
	return stage.Healthy(stageName)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
