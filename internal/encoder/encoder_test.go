package encoder_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"panelcast/internal/config"
	"panelcast/internal/encoder"
)

func TestCodecForMapping(t *testing.T) {
	tests := []struct {
		vendor encoder.Vendor
		want   encoder.Codec
	}{
		{encoder.VendorNvidia, encoder.CodecNVENC},
		{encoder.VendorIntel, encoder.CodecQSV},
		{encoder.VendorAMD, encoder.CodecX264},
		{encoder.VendorUnknown, encoder.CodecX264},
		{encoder.Vendor("matrox"), encoder.CodecX264},
	}
	for _, tt := range tests {
		if got := encoder.CodecFor(tt.vendor); got != tt.want {
			t.Fatalf("CodecFor(%s) = %s, want %s", tt.vendor, got, tt.want)
		}
	}
}

func TestQualityArgs(t *testing.T) {
	tests := map[encoder.Codec][]string{
		encoder.CodecX264:  {"-preset", "medium", "-crf", "23"},
		encoder.CodecNVENC: {"-preset", "p4", "-cq", "23"},
		encoder.CodecQSV:   {"-preset", "medium", "-global_quality", "23"},
	}
	for codec, want := range tests {
		if got := codec.QualityArgs(); !slices.Equal(got, want) {
			t.Fatalf("%s: got %v, want %v", codec, got, want)
		}
	}
}

func TestCodecForMode(t *testing.T) {
	if _, explicit, err := encoder.CodecForMode("AUTO"); err != nil || explicit {
		t.Fatalf("auto should not be explicit: %v %v", explicit, err)
	}
	if codec, explicit, err := encoder.CodecForMode("nvenc"); err != nil || !explicit || codec != encoder.CodecNVENC {
		t.Fatalf("nvenc: %s %v %v", codec, explicit, err)
	}
	if _, _, err := encoder.CodecForMode("vaapi"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func writeDRM(t *testing.T, vendors ...string) string {
	t.Helper()
	root := t.TempDir()
	for i, vendor := range vendors {
		dir := filepath.Join(root, fmt.Sprintf("card%d", i), "device")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "vendor"), []byte(vendor+"\n"), 0o644); err != nil {
			t.Fatalf("write vendor: %v", err)
		}
	}
	return root
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func missingBinary(t *testing.T) string {
	return filepath.Join(t.TempDir(), "does-not-exist")
}

func TestDetectorPrefersDiscreteNvidia(t *testing.T) {
	tests := []struct {
		name    string
		vendors []string
		want    encoder.Vendor
	}{
		{"nvidia and intel", []string{"0x8086", "0x10de"}, encoder.VendorNvidia},
		{"intel only", []string{"0x8086"}, encoder.VendorIntel},
		{"amd only", []string{"0x1002"}, encoder.VendorAMD},
		{"unknown vendor", []string{"0x1234"}, encoder.VendorUnknown},
		{"no cards", nil, encoder.VendorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := encoder.Detector{DRMRoot: writeDRM(t, tt.vendors...), NvidiaSMI: missingBinary(t)}
			got, err := d.Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDetectorFallsBackToNvidiaSMI(t *testing.T) {
	smi := writeScript(t, "nvidia-smi", "echo 'GPU 0: NVIDIA GeForce RTX 3060 (UUID: GPU-1234)'\n")
	d := encoder.Detector{DRMRoot: writeDRM(t), NvidiaSMI: smi}
	got, err := d.Detect(context.Background())
	if err != nil || got != encoder.VendorNvidia {
		t.Fatalf("expected nvidia, got %s (%v)", got, err)
	}
}

func ffmpegListing(t *testing.T, encoders ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Encoders:\n V..... = Video\n ------\n")
	for _, name := range encoders {
		b.WriteString(" V....D " + name + "    test encoder\n")
	}
	listing := filepath.Join(t.TempDir(), "encoders.txt")
	if err := os.WriteFile(listing, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write listing: %v", err)
	}
	return writeScript(t, "ffmpeg", "cat '"+listing+"'\n")
}

func newConfig(t *testing.T, mode, ffmpeg string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Render.Encoder = mode
	cfg.Render.FFmpegBinary = ffmpeg
	return &cfg
}

func TestSelectorAutoVerifiesHardwareCodec(t *testing.T) {
	tests := []struct {
		name      string
		listed    []string
		want      encoder.Codec
		source    string
		drmVendor string
	}{
		{"nvenc available", []string{"libx264", "h264_nvenc"}, encoder.CodecNVENC, encoder.SourceDetected, "0x10de"},
		{"nvenc missing from ffmpeg", []string{"libx264"}, encoder.CodecX264, encoder.SourceFallback, "0x10de"},
		{"qsv available", []string{"libx264", "h264_qsv"}, encoder.CodecQSV, encoder.SourceDetected, "0x8086"},
		{"amd stays software", []string{"libx264", "h264_amf"}, encoder.CodecX264, encoder.SourceDetected, "0x1002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(t, encoder.ModeAuto, ffmpegListing(t, tt.listed...))
			d := encoder.Detector{DRMRoot: writeDRM(t, tt.drmVendor), NvidiaSMI: missingBinary(t)}
			sel := encoder.NewSelector(cfg, nil, encoder.WithDetector(d)).Select(context.Background())
			if sel.Codec != tt.want || sel.Source != tt.source {
				t.Fatalf("expected %s via %s, got %+v", tt.want, tt.source, sel)
			}
		})
	}
}

func TestSelectorOverride(t *testing.T) {
	cfg := newConfig(t, encoder.ModeQSV, ffmpegListing(t, "h264_qsv"))
	d := encoder.Detector{DRMRoot: writeDRM(t, "0x10de"), NvidiaSMI: missingBinary(t)}
	sel := encoder.NewSelector(cfg, nil, encoder.WithDetector(d)).Select(context.Background())
	if sel.Codec != encoder.CodecQSV || sel.Source != encoder.SourceOverride || sel.Vendor != encoder.VendorIntel {
		t.Fatalf("unexpected selection %+v", sel)
	}

	// Software override never executes ffmpeg.
	cfg = newConfig(t, encoder.ModeX264, missingBinary(t))
	sel = encoder.NewSelector(cfg, nil, encoder.WithDetector(d)).Select(context.Background())
	if sel.Codec != encoder.CodecX264 || sel.Source != encoder.SourceOverride {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

func TestSelectorFallsBackWhenFFmpegFails(t *testing.T) {
	cfg := newConfig(t, encoder.ModeNVENC, writeScript(t, "ffmpeg", "exit 1\n"))
	sel := encoder.NewSelector(cfg, nil).Select(context.Background())
	if sel.Codec != encoder.CodecX264 || sel.Source != encoder.SourceFallback || sel.Detail == "" {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

func TestSelectorInvalidModeFallsBack(t *testing.T) {
	cfg := newConfig(t, "vaapi", missingBinary(t))
	sel := encoder.NewSelector(cfg, nil).Select(context.Background())
	if sel.Codec != encoder.CodecX264 || sel.Source != encoder.SourceFallback {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

func TestSelectorProbesOnce(t *testing.T) {
	root := writeDRM(t, "0x8086")
	cfg := newConfig(t, encoder.ModeAuto, ffmpegListing(t, "h264_qsv", "h264_nvenc"))
	s := encoder.NewSelector(cfg, nil, encoder.WithDetector(encoder.Detector{DRMRoot: root, NvidiaSMI: missingBinary(t)}))

	first := s.Select(context.Background())
	if err := os.WriteFile(filepath.Join(root, "card0", "device", "vendor"), []byte("0x10de\n"), 0o644); err != nil {
		t.Fatalf("rewrite vendor: %v", err)
	}
	second := s.Select(context.Background())
	if first != second || second.Codec != encoder.CodecQSV {
		t.Fatalf("expected cached qsv selection, got %+v then %+v", first, second)
	}
}

func TestSelectorProbeIgnoresCallerCancellation(t *testing.T) {
	cfg := newConfig(t, encoder.ModeAuto, ffmpegListing(t, "libx264", "h264_qsv"))
	d := encoder.Detector{DRMRoot: writeDRM(t, "0x8086"), NvidiaSMI: missingBinary(t)}
	s := encoder.NewSelector(cfg, nil, encoder.WithDetector(d))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := s.Select(ctx)
	if first.Codec != encoder.CodecQSV || first.Source != encoder.SourceDetected {
		t.Fatalf("cancelled caller must not force a fallback, got %+v", first)
	}
	if second := s.Select(context.Background()); second != first {
		t.Fatalf("expected cached selection %+v, got %+v", first, second)
	}
}
