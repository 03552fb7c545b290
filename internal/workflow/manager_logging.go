package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"panelcast/internal/logging"
	"panelcast/internal/queue"
	"panelcast/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", lane.name())),
		logging.String("lane", lane.name()),
	)
}

func withStageContext(ctx context.Context, lane *laneState, job *queue.Job, requestID string) context.Context {
	ctx = services.WithPipelineID(ctx, job.PipelineID)
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithStage(ctx, lane.name())
	return services.WithRequestID(ctx, requestID)
}
