package render_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"panelcast/internal/config"
	"panelcast/internal/encoder"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/narration"
	"panelcast/internal/render"
	"panelcast/internal/testsupport"
)

func TestCropOffsetTravelsTopToBottom(t *testing.T) {
	const (
		d      = 4.0
		height = 3080
		view   = 1080
	)
	if got := render.CropOffset(0, d, height, view); got != 0 {
		t.Fatalf("y(0) = %v, want 0", got)
	}
	if got := render.CropOffset(d, d, height, view); got != height-view {
		t.Fatalf("y(D) = %v, want %d", got, height-view)
	}
	prev := -1.0
	for step := 0; step <= 40; step++ {
		y := render.CropOffset(float64(step)*d/40, d, height, view)
		if y < prev {
			t.Fatalf("offset decreased at step %d: %v < %v", step, y, prev)
		}
		prev = y
	}
	if got := render.CropOffset(d*2, d, height, view); got != height-view {
		t.Fatalf("offset past D must clamp, got %v", got)
	}
	if got := render.CropOffset(1, d, 800, view); got != 0 {
		t.Fatalf("short image must not travel, got %v", got)
	}
}

func TestPanFilter(t *testing.T) {
	tall := render.PanFilter(801, 3000, 1080, 2.5)
	for _, want := range []string{
		"[0:v]scale=800:ih[scaled]",
		"crop=w=iw:h=1080:x=0:",
		"(ih-1080)*(t/2.5)",
		"[cropped]",
	} {
		if !strings.Contains(tall, want) {
			t.Fatalf("expected %q in %q", want, tall)
		}
	}
	short := render.PanFilter(640, 600, 1080, 2.5)
	if !strings.Contains(short, "scale=-2:1080") || !strings.Contains(short, "y=0") {
		t.Fatalf("short image filter should upscale without travel: %q", short)
	}
}

var offsetExprPattern = regexp.MustCompile(`^min\(max\(\(ih-(\d+)\)\*\(t/([0-9.]+)\),0\),ih-(\d+)\)$`)

// evalOffsetExpr evaluates an OffsetExpr result for an image of height ih at
// time t, failing if the expression has any other shape.
func evalOffsetExpr(t *testing.T, expr string, ih int, at float64) float64 {
	t.Helper()
	m := offsetExprPattern.FindStringSubmatch(expr)
	if m == nil {
		t.Fatalf("unexpected offset expression %q", expr)
	}
	view, _ := strconv.Atoi(m[1])
	d, _ := strconv.ParseFloat(m[2], 64)
	upper, _ := strconv.Atoi(m[3])
	travel := float64(ih - view)
	return math.Min(math.Max(travel*(at/d), 0), float64(ih-upper))
}

func TestOffsetExprMatchesCropOffset(t *testing.T) {
	const view = 1080
	for _, d := range []float64{0.75, 2.5, 7.125} {
		expr := render.OffsetExpr(view, d)
		if tall := render.PanFilter(800, 3000, view, d); !strings.Contains(tall, "y='"+expr+"'") {
			t.Fatalf("PanFilter does not use OffsetExpr %q: %q", expr, tall)
		}
		for _, height := range []int{1080, 1500, 3000} {
			for _, at := range []float64{0, d / 4, d / 2, d, 2 * d} {
				want := render.CropOffset(at, d, height, view)
				if got := evalOffsetExpr(t, expr, height, at); math.Abs(got-want) > 1e-9 {
					t.Fatalf("d=%v h=%d t=%v: filter y=%v, CropOffset=%v", d, height, at, got, want)
				}
			}
		}
	}
}

func TestOutputWidth(t *testing.T) {
	for in, want := range map[int]int{801: 800, 800: 800, 1: 2, 0: 2} {
		if got := render.OutputWidth(in); got != want {
			t.Fatalf("OutputWidth(%d) = %d, want %d", in, got, want)
		}
	}
}

type fixture struct {
	cfg      *config.Config
	renderer *render.Renderer
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())

	mux := http.NewServeMux()
	mux.HandleFunc("/tall.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(testsupport.FakeImage(800, 3000))
	})
	mux.HandleFunc("/short.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(testsupport.FakeImage(640, 600))
	})
	mux.HandleFunc("/garbage.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nno size here\n"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	selector := encoder.NewSelector(cfg, nil)
	return &fixture{
		cfg:      cfg,
		renderer: render.New(cfg, selector, nil),
		server:   server,
	}
}

func (f *fixture) audio(t *testing.T, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(f.cfg.Paths.AudioDir, name)
	testsupport.WriteAudio(t, path, seconds)
	return path
}

func (f *fixture) image(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.cfg.Paths.AudioDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, testsupport.FakeImage(10, 10), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func (f *fixture) assertNoTempImages(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "panel-") {
			t.Fatalf("temp image left behind: %s", entry.Name())
		}
	}
}

func TestRenderProducesClip(t *testing.T) {
	f := newFixture(t)
	panel := narration.Panel{
		Index:     0,
		ImageURL:  f.server.URL + "/tall.png",
		AudioPath: f.audio(t, "panel_1.mp3", 2.5),
	}
	out := filepath.Join(f.cfg.ClipDir("ch"), "panel_0.mp4")

	outcome := f.renderer.Render(context.Background(), panel, out)
	if !outcome.OK() {
		t.Fatalf("expected rendered outcome, got %+v", outcome)
	}
	if outcome.Index != 0 || outcome.ClipPath != out || outcome.DurationSeconds != 2.5 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	data, err := os.ReadFile(out)
	if err != nil || strings.TrimSpace(string(data)) != "clip panel_1.mp3" {
		t.Fatalf("unexpected clip content %q (%v)", data, err)
	}
	f.assertNoTempImages(t)

	calls := testsupport.FFmpegCalls(t, f.cfg)
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d: %v", len(calls), calls)
	}
	for _, want := range []string{
		"-loop 1 -framerate 24 -i ",
		"-map [cropped] -map 1:a",
		"-c:v libx264 -preset medium -crf 23",
		"-pix_fmt yuv420p -c:a aac -movflags +faststart -shortest -t 2.5 " + out,
		"(ih-1080)*(t/2.5)",
	} {
		if !strings.Contains(calls[0], want) {
			t.Fatalf("expected %q in ffmpeg args %q", want, calls[0])
		}
	}
}

func TestRenderUpscalesShortImage(t *testing.T) {
	f := newFixture(t)
	panel := narration.Panel{Index: 3, ImageURL: f.server.URL + "/short.png", AudioPath: f.audio(t, "short.mp3", 1)}
	outcome := f.renderer.Render(context.Background(), panel, filepath.Join(f.cfg.ClipDir("ch"), "panel_3.mp4"))
	if !outcome.OK() {
		t.Fatalf("expected rendered outcome, got %+v", outcome)
	}
	calls := testsupport.FFmpegCalls(t, f.cfg)
	if len(calls) != 1 || !strings.Contains(calls[0], "scale=-2:1080") {
		t.Fatalf("expected upscale filter, got %v", calls)
	}
}

func TestRenderFailureReasons(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		panel  narration.Panel
		reason render.Reason
		detail string
	}{
		{
			name:   "missing image url",
			panel:  narration.Panel{Index: 1, AudioPath: f.audio(t, "a.mp3", 2)},
			reason: render.ReasonDownload,
			detail: "no image url",
		},
		{
			name:   "http not found",
			panel:  narration.Panel{Index: 2, ImageURL: f.server.URL + "/missing.png", AudioPath: f.audio(t, "b.mp3", 2)},
			reason: render.ReasonDownload,
			detail: "404",
		},
		{
			name:   "unsupported scheme",
			panel:  narration.Panel{Index: 3, ImageURL: "ftp://example.com/x.png", AudioPath: f.audio(t, "c.mp3", 2)},
			reason: render.ReasonDownload,
			detail: "scheme",
		},
		{
			name:   "no audio",
			panel:  narration.Panel{Index: 4, ImageURL: f.server.URL + "/tall.png"},
			reason: render.ReasonInvalidDuration,
			detail: "no narration audio",
		},
		{
			name:   "audio without duration",
			panel:  narration.Panel{Index: 5, ImageURL: f.server.URL + "/tall.png", AudioPath: f.audio(t, "d.mp3", 0)},
			reason: render.ReasonInvalidDuration,
			detail: "duration",
		},
		{
			name:   "audio file missing",
			panel:  narration.Panel{Index: 6, ImageURL: f.server.URL + "/tall.png", AudioPath: filepath.Join(t.TempDir(), "gone.mp3")},
			reason: render.ReasonInvalidDuration,
			detail: "No such file",
		},
		{
			name:   "audio without audio stream",
			panel:  narration.Panel{Index: 9, ImageURL: f.server.URL + "/tall.png", AudioPath: f.image(t, "picture.mp3")},
			reason: render.ReasonInvalidDuration,
			detail: "no audio stream",
		},
		{
			name:   "image without picture",
			panel:  narration.Panel{Index: 7, ImageURL: f.server.URL + "/garbage.png", AudioPath: f.audio(t, "e.mp3", 2)},
			reason: render.ReasonProbe,
			detail: "no video stream",
		},
		{
			name:   "encoder failure",
			panel:  narration.Panel{Index: 8, ImageURL: f.server.URL + "/tall.png", AudioPath: f.audio(t, "fail-encode.mp3", 2)},
			reason: render.ReasonEncode,
			detail: "Conversion failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(f.cfg.ClipDir("ch"), "panel.mp4")
			outcome := f.renderer.Render(context.Background(), tt.panel, out)
			if outcome.OK() {
				t.Fatalf("expected failure, got %+v", outcome)
			}
			if outcome.Index != tt.panel.Index || outcome.Reason != tt.reason {
				t.Fatalf("expected index %d reason %s, got %+v", tt.panel.Index, tt.reason, outcome)
			}
			if !strings.Contains(outcome.Detail, tt.detail) {
				t.Fatalf("expected detail containing %q, got %q", tt.detail, outcome.Detail)
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Fatalf("failed render must not leave a clip: %v", err)
			}
			f.assertNoTempImages(t)
		})
	}
}

type x264Only struct{}

func (x264Only) Select(context.Context) encoder.Selection {
	return encoder.Selection{Codec: encoder.CodecX264}
}

func generateMedia(t *testing.T, ffmpeg string, args ...string) {
	t.Helper()
	cmd := exec.Command(ffmpeg, append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg %v: %v\n%s", args, err, out)
	}
}

func TestRenderClipMatchesNarrationDuration(t *testing.T) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}
	encoders, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil || !strings.Contains(string(encoders), "libx264") {
		t.Skip("ffmpeg lacks libx264")
	}

	cfg := testsupport.NewConfig(t)
	cfg.Render.FFmpegBinary = ffmpegPath
	cfg.Render.FFprobeBinary = ffprobePath

	dir := t.TempDir()
	image := filepath.Join(dir, "panel.png")
	audio := filepath.Join(dir, "narration.m4a")
	generateMedia(t, ffmpegPath, "-f", "lavfi", "-i", "color=c=blue:s=320x1600", "-frames:v", "1", image)
	generateMedia(t, ffmpegPath, "-f", "lavfi", "-i", "sine=frequency=440:duration=1.5", "-c:a", "aac", audio)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, image)
	}))
	defer server.Close()

	ctx := context.Background()
	out := filepath.Join(cfg.ClipDir("real"), "panel_0.mp4")
	outcome := render.New(cfg, x264Only{}, nil).Render(ctx, narration.Panel{
		Index:     0,
		ImageURL:  server.URL + "/panel.png",
		AudioPath: audio,
	}, out)
	if !outcome.OK() {
		t.Fatalf("expected rendered outcome, got %+v", outcome)
	}

	probe, err := ffprobe.Inspect(ctx, ffprobePath, out)
	if err != nil {
		t.Fatalf("probe clip: %v", err)
	}
	got, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		t.Fatalf("parse clip duration %q: %v", probe.Format.Duration, err)
	}
	if frame := 1.0 / float64(cfg.Render.FrameRate); math.Abs(got-outcome.DurationSeconds) > frame {
		t.Fatalf("clip lasts %.3fs, narration %.3fs; want within one frame (%.3fs)", got, outcome.DurationSeconds, frame)
	}
	if _, _, err := probe.VideoSize(); err != nil {
		t.Fatalf("clip has no video stream: %v", err)
	}
}
