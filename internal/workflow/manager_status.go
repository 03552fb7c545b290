package workflow

import (
	"context"

	"panelcast/internal/logging"
	"panelcast/internal/queue"
	"panelcast/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastDone    *Completion
	QueueDepth  map[queue.Kind]int64
	StageHealth map[string]stage.Health
}

// Ready reports whether every configured stage is healthy.
func (s StatusSummary) Ready() bool {
	for _, health := range s.StageHealth {
		if !health.Ready {
			return false
		}
	}
	return len(s.StageHealth) > 0
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastDone := m.lastDone
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	m.mu.RUnlock()

	summary := StatusSummary{
		Running:     running,
		QueueDepth:  make(map[queue.Kind]int64, len(lanes)),
		StageHealth: make(map[string]stage.Health, len(lanes)),
	}
	for _, lane := range lanes {
		depth, err := m.jobs.Depth(ctx, lane.kind)
		if err != nil {
			m.logger.Warn("failed to read queue depth", logging.Error(err), logging.String(logging.FieldStage, lane.name()))
		} else {
			summary.QueueDepth[lane.kind] = depth
		}
		summary.StageHealth[lane.name()] = lane.handler.HealthCheck(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastDone != nil {
		done := *lastDone
		summary.LastDone = &done
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastDone(done Completion) {
	m.mu.Lock()
	m.lastDone = &done
	m.mu.Unlock()
}
