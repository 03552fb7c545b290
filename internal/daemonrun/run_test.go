package daemonrun_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"panelcast/internal/daemonrun"
	"panelcast/internal/queue"
	"panelcast/internal/testsupport"
)

func TestParseStages(t *testing.T) {
	tests := []struct {
		in      string
		want    []queue.Kind
		wantErr bool
	}{
		{"", []queue.Kind{queue.KindVoice, queue.KindVideo}, false},
		{"all", []queue.Kind{queue.KindVoice, queue.KindVideo}, false},
		{"Voice", []queue.Kind{queue.KindVoice}, false},
		{"video", []queue.Kind{queue.KindVideo}, false},
		{"encode", nil, true},
	}
	for _, tt := range tests {
		got, err := daemonrun.ParseStages(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStages(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("ParseStages(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestBuildStagesSelectsHandlers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	set := daemonrun.BuildStages(cfg, nil, []queue.Kind{queue.KindVideo})
	if set.Voice != nil || set.Video == nil {
		t.Fatalf("expected only the video handler, got %+v", set)
	}
}

func TestRunFailsPreflightWithoutBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.FFmpegBinary = "/nonexistent/ffmpeg"
	err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{Stage: "all"})
	if err == nil {
		t.Fatal("expected preflight failure")
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	cfg.Metrics.Enabled = true
	cfg.Metrics.Bind = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{Stage: "voice"})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
