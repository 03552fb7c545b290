package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"panelcast/internal/logging"
	"panelcast/internal/narration"
	"panelcast/internal/queue"
	"panelcast/internal/services"
	"panelcast/internal/status"
	"panelcast/internal/textutil"
)

const maxMessageLen = 512

// Coordinator records pipeline status and starts pipelines.
type Coordinator struct {
	statuses status.Store
	jobs     queue.Queue
	logger   *slog.Logger
}

// NewCoordinator constructs a Coordinator over the shared status store and queue.
func NewCoordinator(statuses status.Store, jobs queue.Queue, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		statuses: statuses,
		jobs:     jobs,
		logger:   logging.NewComponentLogger(logger, "coordinator"),
	}
}

// Submit validates chapter, records it as queued, and enqueues the voice job.
func (c *Coordinator) Submit(ctx context.Context, chapter narration.Chapter) (string, error) {
	if err := chapter.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(chapter)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "submit", "encode payload", "chapter could not be serialized", err)
	}

	id := uuid.NewString()
	if err := c.Advance(ctx, id, status.StageQueued, status.ProgressQueued, "Queued"); err != nil {
		return "", err
	}
	job := queue.Job{
		ID:         uuid.NewString(),
		PipelineID: id,
		Kind:       queue.KindVoice,
		Payload:    payload,
	}
	if err := c.jobs.Enqueue(ctx, job); err != nil {
		wrapped := services.Wrap(services.ErrTransient, "submit", "enqueue voice job", "", err)
		if failErr := c.Fail(context.WithoutCancel(ctx), id, services.Message(wrapped)); failErr != nil {
			c.logger.Error("failed to record submit failure", logging.Error(failErr), logging.String(logging.FieldPipelineID, id))
		}
		return "", wrapped
	}

	c.logger.Info("pipeline submitted",
		logging.String(logging.FieldEventType, "pipeline_submitted"),
		logging.String(logging.FieldPipelineID, id),
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldChapter, chapter.Name),
		logging.Int(logging.FieldPanelCount, len(chapter.Panels)),
	)
	return id, nil
}

// Advance overwrites the status of id. Repeating a call with the same values
// leaves the record unchanged apart from its timestamp.
func (c *Coordinator) Advance(ctx context.Context, id string, stage status.Stage, progress int, message string) error {
	inst := status.Instance{
		ID:        strings.TrimSpace(id),
		Stage:     stage,
		Progress:  progress,
		Message:   textutil.Truncate(strings.TrimSpace(message), maxMessageLen),
		UpdatedAt: time.Now().UTC(),
	}
	if err := inst.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "status", "advance", "", err)
	}
	if err := c.statuses.Set(ctx, inst); err != nil {
		return services.Wrap(services.ErrTransient, "status", "advance", fmt.Sprintf("record %s for %s", stage, id), err)
	}
	return nil
}

// GetStatus returns the recorded status of id. status.ErrNotFound means the
// pipeline has not been recorded yet.
func (c *Coordinator) GetStatus(ctx context.Context, id string) (status.Instance, error) {
	inst, err := c.statuses.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return status.Instance{}, err
		}
		return status.Instance{}, services.Wrap(services.ErrTransient, "status", "get", id, err)
	}
	return inst, nil
}

// Fail records id as failed with message, keeping the last recorded progress.
func (c *Coordinator) Fail(ctx context.Context, id, message string) error {
	progress := status.ProgressQueued
	current, err := c.statuses.Get(ctx, strings.TrimSpace(id))
	switch {
	case err == nil:
		progress = current.Progress
	case errors.Is(err, status.ErrNotFound):
	default:
		return services.Wrap(services.ErrTransient, "status", "fail", id, err)
	}
	if strings.TrimSpace(message) == "" {
		message = "failed without error detail"
	}
	return c.Advance(ctx, id, status.StageFailed, progress, message)
}
