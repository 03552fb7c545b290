package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"panelcast/internal/logging"
	"panelcast/internal/metrics"
	"panelcast/internal/queue"
	"panelcast/internal/services"
)

// processJob runs one stage job to completion. Every error it returns has
// already been recorded on the pipeline.
func (m *Manager) processJob(ctx context.Context, lane *laneState, laneLogger *slog.Logger, job *queue.Job) error {
	stageCtx := withStageContext(ctx, lane, job, uuid.NewString())
	logger := logging.WithContext(stageCtx, laneLogger)

	if err := lane.handler.Prepare(stageCtx, job); err != nil {
		m.handleStageFailure(stageCtx, lane, logger, job, err)
		return err
	}
	if err := m.coord.Advance(stageCtx, job.PipelineID, lane.entry, lane.entry.Progress(), lane.startMsg); err != nil {
		m.handleStageFailure(stageCtx, lane, logger, job, err)
		return err
	}
	return m.executeStage(stageCtx, lane, logger, job)
}

func (m *Manager) executeStage(ctx context.Context, lane *laneState, logger *slog.Logger, job *queue.Job) error {
	stageStart := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("queued_for", stageStart.Sub(job.EnqueuedAt).Round(time.Millisecond).String()),
	)

	result, err := lane.handler.Execute(ctx, job)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Debug("stage interrupted by shutdown")
			err = services.Wrap(services.ErrTransient, lane.name(), "execute", "interrupted by shutdown", err)
		}
		m.handleStageFailure(ctx, lane, logger, job, err)
		return err
	}

	if err := m.coord.Advance(ctx, job.PipelineID, lane.done, lane.done.Progress(), result.Message); err != nil {
		m.handleStageFailure(ctx, lane, logger, job, err)
		return err
	}

	if lane.next != "" {
		next := queue.Job{
			ID:         uuid.NewString(),
			PipelineID: job.PipelineID,
			Kind:       lane.next,
			Payload:    result.Payload,
		}
		if err := m.jobs.Enqueue(ctx, next); err != nil {
			wrapped := services.Wrap(services.ErrTransient, lane.name(), "enqueue next stage", string(lane.next), err)
			m.handleStageFailure(ctx, lane, logger, job, wrapped)
			return wrapped
		}
		logger.Debug("next stage enqueued",
			logging.String("next_stage", string(lane.next)),
			logging.String("next_job_id", next.ID),
		)
	}

	metrics.ObserveStageJob(lane.name(), "completed")
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(lane.done)),
		logging.String("progress_message", result.Message),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastDone(Completion{
		PipelineID: job.PipelineID,
		Stage:      string(lane.done),
		Message:    result.Message,
		At:         time.Now().UTC(),
	})
	return nil
}
