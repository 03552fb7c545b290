package narration

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"panelcast/internal/services"
)

// Panel is one narrated comic image. Index is 0-based and defines reading order.
type Panel struct {
	Index         int    `json:"index"`
	ImageURL      string `json:"imageUrl"`
	NarrationText string `json:"narrationText"`
	AudioPath     string `json:"audioArtifactPath"`
}

// Chapter is the unit of work for one pipeline.
type Chapter struct {
	Name   string  `json:"chapterName"`
	Panels []Panel `json:"panels"`
}

// Clone returns a deep copy so stages can resolve fields without mutating input.
func (c Chapter) Clone() Chapter {
	out := Chapter{Name: c.Name}
	if c.Panels != nil {
		out.Panels = make([]Panel, len(c.Panels))
		copy(out.Panels, c.Panels)
	}
	return out
}

// Validate checks the reading-order precondition: a named chapter with at
// least one panel whose indices are exactly 0..N-1 in ascending order.
func (c Chapter) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("chapter name is empty")
	}
	if len(c.Panels) == 0 {
		return invalid(fmt.Sprintf("chapter %q has no panels", c.Name))
	}
	for i, panel := range c.Panels {
		if panel.Index != i {
			return invalid(fmt.Sprintf("chapter %q panel at position %d has index %d; panels must arrive in reading order indexed from 0", c.Name, i, panel.Index))
		}
	}
	return nil
}

// SafeName replaces every character outside [A-Za-z0-9] with an underscore.
// It names clip directories and the final chapter video.
func SafeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DisplayTitle returns a title-cased chapter name for human output.
func DisplayTitle(name string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(name))
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "narration", "validate", message, nil)
}
