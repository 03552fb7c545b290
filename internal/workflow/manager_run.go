package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"panelcast/internal/logging"
	"panelcast/internal/metrics"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = m.logger
	}
	logger.Debug("lane started", logging.Duration("dequeue_wait", m.dequeueWait))

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := m.jobs.Dequeue(ctx, lane.kind, m.dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleDequeueError(ctx, logger, lane, err)
			continue
		}
		m.recordDepth(ctx, lane)
		if job == nil {
			continue
		}

		if err := m.processJob(ctx, lane, logger, job); errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (m *Manager) handleDequeueError(ctx context.Context, logger *slog.Logger, lane *laneState, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(logger, "failed to dequeue stage job", "queue_fetch_failed",
		logging.Error(err),
		logging.String(logging.FieldStage, lane.name()),
		logging.String(logging.FieldErrorHint, "check the queue backend connection"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.retryInterval):
	}
}

func (m *Manager) recordDepth(ctx context.Context, lane *laneState) {
	depth, err := m.jobs.Depth(ctx, lane.kind)
	if err != nil {
		return
	}
	metrics.SetQueueDepth(lane.name(), depth)
}

