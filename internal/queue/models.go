package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names the stage that consumes a job.
type Kind string

const (
	KindVoice Kind = "voice"
	KindVideo Kind = "video"
)

// Kinds lists every stage kind in pipeline order.
func Kinds() []Kind {
	return []Kind{KindVoice, KindVideo}
}

// ParseKind converts user input into a Kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case KindVoice, KindVideo:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown stage kind %q", value)
	}
}

// Job is a single unit of stage work.
type Job struct {
	ID         string          `json:"id"`
	PipelineID string          `json:"pipelineId"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Validate checks the fields every backend requires.
func (j Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(j.PipelineID) == "" {
		return errors.New("job pipeline id is required")
	}
	if _, err := ParseKind(string(j.Kind)); err != nil {
		return err
	}
	if len(j.Payload) == 0 {
		return errors.New("job payload is required")
	}
	return nil
}
