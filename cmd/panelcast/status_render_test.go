package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"panelcast/internal/preflight"
	"panelcast/internal/status"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "binary not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] binary not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Codec", statusOK, "h264_nvenc", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestStageKind(t *testing.T) {
	tests := []struct {
		stage status.Stage
		want  statusKind
	}{
		{status.StageQueued, statusWarn},
		{status.StageVoice, statusInfo},
		{status.StageVideo, statusInfo},
		{status.StageVideoDone, statusOK},
		{status.StageFailed, statusError},
	}
	for _, tt := range tests {
		if got := stageKind(tt.stage); got != tt.want {
			t.Fatalf("stageKind(%s) = %v, want %v", tt.stage, got, tt.want)
		}
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "Work directory", Passed: true},
		{Name: "nvidia-smi", Optional: true, Detail: "binary \"nvidia-smi\" not found"},
		{Name: "FFmpeg", Detail: "binary \"ffmpeg\" not found"},
	}
	lines := preflightLines(results, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] Ready") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN]") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] binary \"ffmpeg\" not found") {
		t.Fatalf("unexpected third line %q", lines[2])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
