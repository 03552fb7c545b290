package narration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"panelcast/internal/services"
)

// dialogImage is one entry of the panel-wise dialog export.
type dialogImage struct {
	ImageURL  string `json:"imageUrl"`
	Narration string `json:"narration"`
	AudioPath string `json:"audioPath"`
}

type rawChapter struct {
	Name   string        `json:"chapterName"`
	Panels []Panel       `json:"panels"`
	Images []dialogImage `json:"images"`
}

func (r rawChapter) chapter() Chapter {
	if len(r.Panels) > 0 || r.Images == nil {
		return Chapter{Name: r.Name, Panels: r.Panels}
	}
	panels := make([]Panel, len(r.Images))
	for i, img := range r.Images {
		panels[i] = Panel{
			Index:         i,
			ImageURL:      img.ImageURL,
			NarrationText: img.Narration,
			AudioPath:     img.AudioPath,
		}
	}
	return Chapter{Name: r.Name, Panels: panels}
}

// Load reads a narration document from disk.
func Load(path string) ([]Chapter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "narration", "open", path, err)
	}
	defer file.Close()
	return Decode(file)
}

// Decode parses a single chapter object, an array of chapters, or the
// panel-wise dialog export (chapters with "images" entries, indexed by
// position). Each chapter is validated.
func Decode(r io.Reader) ([]Chapter, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "narration", "read", "", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "narration", "decode", "document is empty", nil)
	}

	var raws []rawChapter
	switch data[0] {
	case '{':
		var single rawChapter
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, services.Wrap(services.ErrValidation, "narration", "decode", "malformed chapter object", err)
		}
		raws = []rawChapter{single}
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, services.Wrap(services.ErrValidation, "narration", "decode", "malformed chapter list", err)
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "narration", "decode", "document must be a JSON object or array", nil)
	}
	if len(raws) == 0 {
		return nil, services.Wrap(services.ErrValidation, "narration", "decode", "document has no chapters", nil)
	}

	chapters := make([]Chapter, 0, len(raws))
	for i, raw := range raws {
		ch := raw.chapter()
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("chapter %d: %w", i, err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}
