package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"panelcast/internal/config"
	"panelcast/internal/encoder"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/metrics"
	"panelcast/internal/narration"
	"panelcast/internal/procgroup"
	"panelcast/internal/textutil"
)

const (
	stderrTailBytes = 4096
	stderrTailLines = 6
	killGrace       = 5 * time.Second
	sniffLen        = 512
)

// CodecSource yields the codec used for every clip.
type CodecSource interface {
	Select(ctx context.Context) encoder.Selection
}

// Renderer renders panels to clips. It is safe for concurrent use.
type Renderer struct {
	workDir     string
	ffmpeg      string
	ffprobe     string
	frameHeight int
	frameRate   int
	userAgent   string
	codecs      CodecSource
	client      *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithHTTPClient replaces the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Renderer) { r.client = client }
}

// New builds a Renderer from configuration.
func New(cfg *config.Config, codecs CodecSource, logger *slog.Logger, opts ...Option) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := rate.Inf
	if cfg.Download.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.Download.RequestsPerSecond)
	}
	burst := cfg.Download.Burst
	if burst <= 0 {
		burst = 1
	}
	r := &Renderer{
		workDir:     cfg.Paths.WorkDir,
		ffmpeg:      cfg.FFmpegBinary(),
		ffprobe:     cfg.FFprobeBinary(),
		frameHeight: cfg.Render.FrameHeight,
		frameRate:   cfg.Render.FrameRate,
		userAgent:   cfg.Download.UserAgent,
		codecs:      codecs,
		client:      &http.Client{Timeout: time.Duration(cfg.Download.TimeoutSeconds) * time.Second},
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces outputPath from panel. The downloaded image lives in a temp
// file under the work directory that is removed before Render returns.
func (r *Renderer) Render(ctx context.Context, panel narration.Panel, outputPath string) Outcome {
	start := time.Now()
	codec := r.codecs.Select(ctx).Codec
	outcome := r.render(ctx, panel, outputPath, codec)

	metrics.ObservePanel(string(outcome.Kind), string(outcome.Reason))
	if outcome.OK() {
		metrics.PanelRenderSeconds.WithLabelValues(string(codec)).Observe(time.Since(start).Seconds())
		r.logger.Debug("panel rendered",
			logging.Int(logging.FieldPanelIndex, panel.Index),
			logging.String("clip", outputPath),
			logging.Float64("duration_seconds", outcome.DurationSeconds),
		)
	} else {
		logging.WarnWithContext(r.logger, "panel render failed", "panel_render_failed",
			logging.Int(logging.FieldPanelIndex, panel.Index),
			logging.String("reason", string(outcome.Reason)),
			logging.String("detail", outcome.Detail),
			logging.String(logging.FieldErrorHint, hintFor(outcome.Reason)),
			logging.String(logging.FieldImpact, "panel is skipped in the chapter video"),
		)
	}
	return outcome
}

func (r *Renderer) render(ctx context.Context, panel narration.Panel, outputPath string, codec encoder.Codec) Outcome {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return Failed(panel.Index, ReasonDownload, fmt.Sprintf("prepare work dir: %v", err))
	}

	imagePath, err := r.download(ctx, panel.ImageURL)
	if imagePath != "" {
		defer os.Remove(imagePath)
	}
	if err != nil {
		return Failed(panel.Index, ReasonDownload, err.Error())
	}

	duration, err := r.audioDuration(ctx, panel.AudioPath)
	if err != nil {
		return Failed(panel.Index, ReasonInvalidDuration, err.Error())
	}

	probe, err := ffprobe.Inspect(ctx, r.ffprobe, imagePath)
	if err != nil {
		return Failed(panel.Index, ReasonProbe, err.Error())
	}
	width, height, err := probe.VideoSize()
	if err != nil {
		return Failed(panel.Index, ReasonProbe, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Failed(panel.Index, ReasonEncode, fmt.Sprintf("prepare clip dir: %v", err))
	}
	args := r.encodeArgs(imagePath, panel.AudioPath, outputPath, codec, PanFilter(width, height, r.frameHeight, duration), duration)
	if detail, err := r.runFFmpeg(ctx, args); err != nil {
		_ = os.Remove(outputPath)
		if detail == "" {
			detail = err.Error()
		}
		return Failed(panel.Index, ReasonEncode, detail)
	}
	return Rendered(panel.Index, outputPath, duration)
}

func (r *Renderer) audioDuration(ctx context.Context, audioPath string) (float64, error) {
	if strings.TrimSpace(audioPath) == "" {
		return 0, errors.New("panel has no narration audio")
	}
	probe, err := ffprobe.Inspect(ctx, r.ffprobe, audioPath)
	if err != nil {
		return 0, err
	}
	if probe.AudioStreamCount() == 0 {
		return 0, errors.New("narration file has no audio stream")
	}
	return probe.AudioDuration()
}

// encodeArgs bounds the clip to the narration duration with -t so the looped
// image cannot outrun the audio.
func (r *Renderer) encodeArgs(imagePath, audioPath, outputPath string, codec encoder.Codec, filter string, duration float64) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-loop", "1", "-framerate", strconv.Itoa(r.frameRate), "-i", imagePath,
		"-i", audioPath,
		"-filter_complex", filter,
		"-map", "[cropped]", "-map", "1:a",
		"-c:v", string(codec),
	}
	args = append(args, codec.QualityArgs()...)
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-shortest",
		"-t", FormatSeconds(duration),
		outputPath,
	)
	return args
}

// runFFmpeg executes ffmpeg in its own process group and returns the tail of
// stderr on failure.
func (r *Renderer) runFFmpeg(ctx context.Context, args []string) (string, error) {
	tail := textutil.NewTail(stderrTailBytes)
	cmd := exec.CommandContext(ctx, r.ffmpeg, args...)
	procgroup.Bind(cmd, killGrace)
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "ffmpeg interrupted: " + ctxErr.Error(), err
		}
		return tail.LastLines(stderrTailLines), err
	}
	return "", nil
}

// download fetches rawURL into a temp file whose extension matches the
// sniffed image type so ffmpeg's image demuxer accepts it. The returned path
// is set whenever a temp file was created, even on error.
func (r *Renderer) download(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("panel has no image url")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported image url scheme %q", parsed.Scheme)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("download rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch image: unexpected status %s", resp.Status)
	}

	body := bufio.NewReaderSize(resp.Body, sniffLen)
	head, err := body.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(head) == 0 {
		return "", errors.New("image response was empty")
	}

	tmp, err := os.CreateTemp(r.workDir, "panel-*"+imageExtension(http.DetectContentType(head), parsed.Path))
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	path := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return path, fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return path, fmt.Errorf("close image: %w", err)
	}
	return path, nil
}

func imageExtension(contentType, urlPath string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	}
	switch ext := strings.ToLower(filepath.Ext(urlPath)); ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp":
		return ext
	}
	return ".jpg"
}

func hintFor(reason Reason) string {
	switch reason {
	case ReasonDownload:
		return "check that the panel image url is reachable"
	case ReasonInvalidDuration:
		return "regenerate the narration audio for this panel"
	case ReasonProbe:
		return "check that the downloaded file is a valid image"
	case ReasonEncode:
		return "inspect the ffmpeg detail; verify the selected encoder works on this host"
	default:
		return "check logs for details"
	}
}
