package voice

import (
	"encoding/json"

	"panelcast/internal/narration"
	"panelcast/internal/queue"
	"panelcast/internal/services"
)

// DecodeChapter parses and validates the chapter carried by a stage job.
func DecodeChapter(stageName string, job *queue.Job) (narration.Chapter, error) {
	if job == nil {
		return narration.Chapter{}, services.Wrap(services.ErrValidation, stageName, "decode payload", "job is missing", nil)
	}
	var chapter narration.Chapter
	if err := json.Unmarshal(job.Payload, &chapter); err != nil {
		return narration.Chapter{}, services.Wrap(services.ErrValidation, stageName, "decode payload", "malformed chapter payload", err)
	}
	if err := chapter.Validate(); err != nil {
		return narration.Chapter{}, err
	}
	return chapter, nil
}

// EncodeChapter serializes chapter as a job payload.
func EncodeChapter(stageName string, chapter narration.Chapter) (json.RawMessage, error) {
	data, err := json.Marshal(chapter)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "encode payload", "chapter could not be serialized", err)
	}
	return data, nil
}
