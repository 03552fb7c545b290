package narration_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"panelcast/internal/narration"
	"panelcast/internal/services"
)

func TestDecodeNativeChapter(t *testing.T) {
	doc := `{"chapterName":"Chapter 1","panels":[
		{"index":0,"imageUrl":"https://x/1.jpg","narrationText":"One","audioArtifactPath":"/a/1.mp3"},
		{"index":1,"imageUrl":"https://x/2.jpg","narrationText":"Two","audioArtifactPath":"/a/2.mp3"}]}`

	chapters, err := narration.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []narration.Chapter{{
		Name: "Chapter 1",
		Panels: []narration.Panel{
			{Index: 0, ImageURL: "https://x/1.jpg", NarrationText: "One", AudioPath: "/a/1.mp3"},
			{Index: 1, ImageURL: "https://x/2.jpg", NarrationText: "Two", AudioPath: "/a/2.mp3"},
		},
	}}
	if diff := cmp.Diff(want, chapters); diff != "" {
		t.Fatalf("chapters mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDialogExportSplitsChapters(t *testing.T) {
	doc := `[
		{"chapterName":"Ch 1","images":[
			{"imageUrl":"https://x/1.jpg","narration":"a","audioPath":"output/audio/Ch_1/panel_1.mp3"},
			{"imageUrl":"https://x/2.jpg","narration":"b","audioPath":""}]},
		{"chapterName":"Ch 2","images":[
			{"imageUrl":"https://x/3.jpg","narration":"c","audioPath":"output/audio/Ch_2/panel_1.mp3"}]}
	]`

	chapters, err := narration.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Panels[1].Index != 1 || chapters[0].Panels[1].NarrationText != "b" {
		t.Fatalf("unexpected second panel: %+v", chapters[0].Panels[1])
	}
	if chapters[1].Name != "Ch 2" || chapters[1].Panels[0].Index != 0 {
		t.Fatalf("unexpected second chapter: %+v", chapters[1])
	}
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":          "  ",
		"scalar":         `"chapter"`,
		"malformed":      `{"chapterName":`,
		"no chapters":    `[]`,
		"no panels":      `{"chapterName":"x","panels":[]}`,
		"blank name":     `{"chapterName":" ","panels":[{"index":0,"imageUrl":"u"}]}`,
		"out of order":   `{"chapterName":"x","panels":[{"index":1,"imageUrl":"u"},{"index":0,"imageUrl":"v"}]}`,
		"gap in index":   `{"chapterName":"x","panels":[{"index":0,"imageUrl":"u"},{"index":2,"imageUrl":"v"}]}`,
		"not zero based": `{"chapterName":"x","panels":[{"index":1,"imageUrl":"u"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := narration.Decode(strings.NewReader(doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := narration.Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narration.json")
	if err := os.WriteFile(path, []byte(`{"chapterName":"x","panels":[{"index":0,"imageUrl":"u"}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	chapters, err := narration.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Name != "x" {
		t.Fatalf("unexpected chapters: %+v", chapters)
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"Chapter 1":          "Chapter_1",
		"Solo-Leveling: 110": "Solo_Leveling__110",
		"abcXYZ019":          "abcXYZ019",
		"":                   "",
		"é/ü":                "___",
	}
	for in, want := range cases {
		if got := narration.SafeName(in); got != want {
			t.Fatalf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := narration.DisplayTitle("  the last chapter "); got != "The Last Chapter" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := narration.Chapter{Name: "x", Panels: []narration.Panel{{Index: 0, AudioPath: "a"}}}
	clone := original.Clone()
	clone.Panels[0].AudioPath = "b"
	if original.Panels[0].AudioPath != "a" {
		t.Fatal("clone shares panel storage with original")
	}
}
