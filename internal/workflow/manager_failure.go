package workflow

import (
	"context"
	"log/slog"
	"time"

	"panelcast/internal/logging"
	"panelcast/internal/metrics"
	"panelcast/internal/queue"
	"panelcast/internal/services"
	"panelcast/internal/status"
)

const failureWriteTimeout = 10 * time.Second

// handleStageFailure marks the pipeline failed. The write is detached from
// ctx so shutdown does not leave a pipeline stuck mid-stage.
func (m *Manager) handleStageFailure(ctx context.Context, lane *laneState, logger *slog.Logger, job *queue.Job, stageErr error) {
	message := classifyStageFailure(lane.name(), stageErr)
	details := services.Describe(stageErr)

	attrs := []logging.Attr{
		logging.String("resolved_status", string(status.StageFailed)),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, hintFor(details.Kind)),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)
	metrics.ObserveStageJob(lane.name(), "failed")
	m.setLastError(stageErr)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()
	if err := m.coord.Fail(writeCtx, job.PipelineID, message); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageName + " failed without error detail"
	}
	return stageName + ": " + services.Message(stageErr)
}

func hintFor(kind services.ErrorKind) string {
	switch kind {
	case services.KindValidation:
		return "fix the narration document and resubmit"
	case services.KindExternalTool:
		return "check ffmpeg output in the logs"
	case services.KindConfiguration:
		return "run panelcast config validate"
	case services.KindTransient:
		return "check the status and queue backend, then resubmit"
	default:
		return "check logs for details"
	}
}
