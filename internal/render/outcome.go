package render

import "fmt"

// Kind tags an Outcome.
type Kind string

const (
	KindRendered Kind = "rendered"
	KindFailed   Kind = "failed"
)

// Reason classifies a failed render.
type Reason string

const (
	ReasonDownload        Reason = "download"
	ReasonInvalidDuration Reason = "invalid-duration"
	ReasonProbe           Reason = "probe"
	ReasonEncode          Reason = "encode"
)

// Outcome is the result of rendering one panel. Rendered outcomes carry the
// clip path and duration; failed outcomes carry a reason and detail.
type Outcome struct {
	Kind            Kind    `json:"kind"`
	Index           int     `json:"index"`
	ClipPath        string  `json:"clipPath,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Reason          Reason  `json:"reason,omitempty"`
	Detail          string  `json:"detail,omitempty"`
}

// Rendered builds a successful outcome.
func Rendered(index int, clipPath string, duration float64) Outcome {
	return Outcome{Kind: KindRendered, Index: index, ClipPath: clipPath, DurationSeconds: duration}
}

// Failed builds a failed outcome.
func Failed(index int, reason Reason, detail string) Outcome {
	return Outcome{Kind: KindFailed, Index: index, Reason: reason, Detail: detail}
}

// OK reports whether the panel produced a clip.
func (o Outcome) OK() bool {
	return o.Kind == KindRendered
}

func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("panel %d rendered (%.2fs)", o.Index, o.DurationSeconds)
	}
	return fmt.Sprintf("panel %d failed: %s", o.Index, o.Reason)
}
