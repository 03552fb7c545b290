package assemble_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"panelcast/internal/assemble"
	"panelcast/internal/config"
	"panelcast/internal/render"
	"panelcast/internal/services"
	"panelcast/internal/testsupport"
)

func writeClip(t *testing.T, cfg *config.Config, index int, body string) string {
	t.Helper()
	path := filepath.Join(cfg.ClipDir("chapter"), fmt.Sprintf("panel_%d.mp4", index))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestConcatListEscapesQuotes(t *testing.T) {
	got := assemble.ConcatList([]string{"/clips/a.mp4", "/clips/it's.mp4"})
	want := "file '/clips/a.mp4'\nfile '/clips/it'\\''s.mp4'\n"
	if got != want {
		t.Fatalf("unexpected list:\n%s\nwant:\n%s", got, want)
	}
}

func TestSurvivorsSortByIndex(t *testing.T) {
	outcomes := []render.Outcome{
		render.Rendered(2, "/c/2.mp4", 1),
		render.Failed(1, render.ReasonDownload, "x"),
		render.Rendered(0, "/c/0.mp4", 1),
	}
	got := assemble.Survivors(outcomes)
	want := []render.Outcome{
		render.Rendered(0, "/c/0.mp4", 1),
		render.Rendered(2, "/c/2.mp4", 1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("survivors mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleSkipsFailedPanelsInIndexOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	a := assemble.New(cfg, nil)

	outcomes := []render.Outcome{
		render.Rendered(2, writeClip(t, cfg, 2, "clip two\n"), 1.5),
		render.Failed(1, render.ReasonEncode, "Conversion failed"),
		render.Rendered(0, writeClip(t, cfg, 0, "clip zero\n"), 2),
	}
	video, err := a.Assemble(context.Background(), "Solo Leveling: 110", outcomes)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	wantPath := filepath.Join(cfg.Paths.OutputDir, "Solo_Leveling__110.mp4")
	if video.FinalPath != wantPath || video.Empty || video.Rendered != 2 || video.Total != 3 {
		t.Fatalf("unexpected video %+v", video)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "clip zero\nclip two\n" {
		t.Fatalf("clips concatenated out of order: %q", data)
	}

	calls := testsupport.FFmpegCalls(t, cfg)
	if len(calls) != 1 || !strings.Contains(calls[0], "-f concat -safe 0 -i ") || !strings.Contains(calls[0], "-c copy -f mp4 -y ") {
		t.Fatalf("unexpected ffmpeg calls %v", calls)
	}
	if strings.HasSuffix(calls[0], " "+wantPath) {
		t.Fatalf("ffmpeg must write a pending file, not %s directly", wantPath)
	}
	outputs, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var names []string
	for _, entry := range outputs {
		names = append(names, entry.Name())
	}
	if diff := cmp.Diff([]string{"Solo_Leveling__110.json", "Solo_Leveling__110.mp4"}, names); diff != "" {
		t.Fatalf("output dir mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "concat-") {
			t.Fatalf("concat list left behind: %s", entry.Name())
		}
	}

	var manifest assemble.Manifest
	raw, err := os.ReadFile(video.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if diff := cmp.Diff([]int{0, 2}, manifest.Rendered); diff != "" {
		t.Fatalf("manifest rendered mismatch (-want +got):\n%s", diff)
	}
	if len(manifest.Failed) != 1 || manifest.Failed[0].Index != 1 || manifest.Failed[0].Reason != render.ReasonEncode {
		t.Fatalf("unexpected manifest failures %+v", manifest.Failed)
	}
}

func TestAssembleAllFailedIsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	a := assemble.New(cfg, nil)
	outcomes := []render.Outcome{
		render.Failed(0, render.ReasonDownload, "404"),
		render.Failed(1, render.ReasonInvalidDuration, "no audio"),
	}
	video, err := a.Assemble(context.Background(), "Chapter 9", outcomes)
	if err != nil {
		t.Fatalf("Assemble should not fail for an empty chapter: %v", err)
	}
	if !video.Empty || video.FinalPath != "" || video.ChapterName != "Chapter 9" {
		t.Fatalf("expected empty result, got %+v", video)
	}
	if calls := testsupport.FFmpegCalls(t, cfg); len(calls) != 0 {
		t.Fatalf("ffmpeg must not run for an empty chapter, got %v", calls)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Chapter_9.mp4")); !os.IsNotExist(err) {
		t.Fatalf("no video should be written: %v", err)
	}
}

func TestAssembleEmptyRemovesStaleVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	a := assemble.New(cfg, nil)

	first, err := a.Assemble(context.Background(), "Chapter 4", []render.Outcome{
		render.Rendered(0, writeClip(t, cfg, 0, "clip 0\n"), 1),
	})
	if err != nil || first.Empty {
		t.Fatalf("first Assemble = %+v, %v", first, err)
	}

	second, err := a.Assemble(context.Background(), "Chapter 4", []render.Outcome{
		render.Failed(0, render.ReasonDownload, "404"),
	})
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	if !second.Empty {
		t.Fatalf("expected empty result, got %+v", second)
	}
	if _, err := os.Stat(first.FinalPath); !os.IsNotExist(err) {
		t.Fatalf("stale video %s should be removed, stat err = %v", first.FinalPath, err)
	}
}

func TestManifestMatchesSurvivors(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	a := assemble.New(cfg, nil)
	outcomes := []render.Outcome{
		render.Rendered(0, writeClip(t, cfg, 0, "clip 0\n"), 1),
		render.Rendered(1, "", 1),
	}
	video, err := a.Assemble(context.Background(), "Chapter 5", outcomes)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if video.Rendered != len(assemble.Survivors(outcomes)) {
		t.Fatalf("Rendered = %d, want %d", video.Rendered, len(assemble.Survivors(outcomes)))
	}

	raw, err := os.ReadFile(video.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest assemble.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if diff := cmp.Diff([]int{0}, manifest.Rendered); diff != "" {
		t.Fatalf("manifest rendered mismatch (-want +got):\n%s", diff)
	}
	if len(manifest.Failed) != 1 || manifest.Failed[0].Index != 1 {
		t.Fatalf("clip-less outcome should be listed as failed, got %+v", manifest.Failed)
	}
}

func TestAssembleFFmpegFailureIsExternalToolError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	// The fake ffmpeg fails when an input path mentions fail-encode; the
	// concat list lives in the work dir, so point the work dir there.
	cfg.Paths.WorkDir = filepath.Join(testsupport.BaseDir(cfg), "fail-encode")
	a := assemble.New(cfg, nil)

	outcomes := []render.Outcome{render.Rendered(0, writeClip(t, cfg, 0, "clip\n"), 1)}
	_, err := a.Assemble(context.Background(), "Broken", outcomes)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Broken.mp4")); !os.IsNotExist(statErr) {
		t.Fatalf("failed concat must not leave output: %v", statErr)
	}
}
