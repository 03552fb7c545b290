package status

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage is a named point in the pipeline lifecycle.
type Stage string

const (
	StageQueued    Stage = "queued"
	StageVoice     Stage = "voice"
	StageVoiceDone Stage = "voice-done"
	StageVideo     Stage = "video"
	StageVideoDone Stage = "video-done"
	StageFailed    Stage = "failed"
)

// Canonical progress values per stage.
const (
	ProgressQueued    = 0
	ProgressVoice     = 50
	ProgressVoiceDone = 70
	ProgressVideo     = 80
	ProgressVideoDone = 100
)

// ErrNotFound reports that no status has been recorded for an identifier.
var ErrNotFound = errors.New("pipeline status not found")

var stageOrder = []Stage{
	StageQueued,
	StageVoice,
	StageVoiceDone,
	StageVideo,
	StageVideoDone,
}

var canonicalProgress = map[Stage]int{
	StageQueued:    ProgressQueued,
	StageVoice:     ProgressVoice,
	StageVoiceDone: ProgressVoiceDone,
	StageVideo:     ProgressVideo,
	StageVideoDone: ProgressVideoDone,
}

// ParseStage converts a stored or user-supplied value into a Stage.
func ParseStage(value string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q", value)
	}
	return stage, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	if s == StageFailed {
		return true
	}
	_, ok := canonicalProgress[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s Stage) Terminal() bool {
	return s == StageVideoDone || s == StageFailed
}

// Progress returns the canonical progress for s. Failed has none and reports -1.
func (s Stage) Progress() int {
	if value, ok := canonicalProgress[s]; ok {
		return value
	}
	return -1
}

// Next returns the stage that follows s in the linear chain.
func (s Stage) Next() (Stage, bool) {
	for i, candidate := range stageOrder {
		if candidate == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

// Instance is the recorded state of a single pipeline.
type Instance struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields every backend requires before persisting.
func (i Instance) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("status id is required")
	}
	if !i.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", i.Stage)
	}
	if i.Progress < 0 || i.Progress > 100 {
		return fmt.Errorf("progress %d out of range [0,100]", i.Progress)
	}
	return nil
}
