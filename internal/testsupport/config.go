package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"panelcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The memory backend is selected unless an option overrides it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.AudioDir = filepath.Join(base, "audio")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.Backend = "memory"
	cfgVal.Download.RequestsPerSecond = 0
	cfgVal.Workflow.DequeueTimeout = 1
	cfgVal.Workflow.ErrorRetryInterval = 1
	cfgVal.Metrics.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackend selects the status and queue backend.
func WithBackend(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = name
	}
}

// WithMiniredis starts an in-process redis server and points the redis
// backend at it.
func WithMiniredis() ConfigOption {
	return func(b *configBuilder) {
		mr := miniredis.NewMiniRedis()
		if err := mr.Start(); err != nil {
			b.t.Fatalf("start miniredis: %v", err)
		}
		b.t.Cleanup(mr.Close)
		b.cfg.Store.Backend = "redis"
		b.cfg.Redis.Addr = mr.Addr()
	}
}

// WithConcurrency overrides the render batch width.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Concurrency = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// WithMediaTools installs scripted ffmpeg and ffprobe fakes and points the
// render configuration at them. See media.go for their behaviour.
func WithMediaTools() ConfigOption {
	return func(b *configBuilder) {
		toolDir := filepath.Join(b.baseDir, "tools")
		if err := os.MkdirAll(toolDir, 0o755); err != nil {
			b.t.Fatalf("mkdir tool dir: %v", err)
		}
		ffmpeg := filepath.Join(toolDir, "ffmpeg")
		ffprobe := filepath.Join(toolDir, "ffprobe")
		if err := os.WriteFile(ffmpeg, []byte(fakeFFmpeg), 0o755); err != nil {
			b.t.Fatalf("write fake ffmpeg: %v", err)
		}
		if err := os.WriteFile(ffprobe, []byte(fakeFFprobe), 0o755); err != nil {
			b.t.Fatalf("write fake ffprobe: %v", err)
		}
		b.cfg.Render.FFmpegBinary = ffmpeg
		b.cfg.Render.FFprobeBinary = ffprobe
		b.cfg.Render.Encoder = "x264"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
