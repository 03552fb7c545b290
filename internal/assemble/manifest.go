package assemble

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/renameio/v2"

	"panelcast/internal/render"
)

// Manifest records how a chapter video was built.
type Manifest struct {
	ChapterName string        `json:"chapterName"`
	FinalPath   string        `json:"finalPath,omitempty"`
	Empty       bool          `json:"empty,omitempty"`
	Rendered    []int         `json:"rendered"`
	Failed      []FailedPanel `json:"failed"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// FailedPanel describes a panel left out of the video.
type FailedPanel struct {
	Index  int           `json:"index"`
	Reason render.Reason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

func newManifest(video ChapterVideo, outcomes []render.Outcome, now time.Time) Manifest {
	m := Manifest{
		ChapterName: video.ChapterName,
		FinalPath:   video.FinalPath,
		Empty:       video.Empty,
		Rendered:    []int{},
		Failed:      []FailedPanel{},
		CreatedAt:   now.UTC(),
	}
	ordered := slices.Clone(outcomes)
	slices.SortStableFunc(ordered, func(a, b render.Outcome) int { return a.Index - b.Index })
	for _, o := range ordered {
		switch {
		case usable(o):
			m.Rendered = append(m.Rendered, o.Index)
		case o.OK():
			m.Failed = append(m.Failed, FailedPanel{Index: o.Index, Reason: render.ReasonEncode, Detail: "rendered without a clip path"})
		default:
			m.Failed = append(m.Failed, FailedPanel{Index: o.Index, Reason: o.Reason, Detail: o.Detail})
		}
	}
	return m
}

// writeManifest replaces path atomically.
func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending manifest: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
