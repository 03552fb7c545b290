package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"panelcast/internal/config"
	"panelcast/internal/logging"
	"panelcast/internal/queue"
	"panelcast/internal/services"
	"panelcast/internal/stage"
)

const (
	defaultDequeueWait   = 5 * time.Second
	defaultRetryInterval = 10 * time.Second
)

// Manager runs one worker lane per configured stage.
type Manager struct {
	coord         *Coordinator
	jobs          queue.Queue
	logger        *slog.Logger
	dequeueWait   time.Duration
	retryInterval time.Duration

	laneOrder []queue.Kind
	lanes     map[queue.Kind]*laneState

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastDone *Completion
}

// Completion describes the most recent job a lane finished.
type Completion struct {
	PipelineID string
	Stage      string
	Message    string
	At         time.Time
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, coord *Coordinator, jobs queue.Queue, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		coord:         coord,
		jobs:          jobs,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		dequeueWait:   defaultDequeueWait,
		retryInterval: defaultRetryInterval,
		lanes:         make(map[queue.Kind]*laneState),
	}
	if cfg != nil {
		if cfg.Workflow.DequeueTimeout > 0 {
			m.dequeueWait = time.Duration(cfg.Workflow.DequeueTimeout) * time.Second
		}
		if cfg.Workflow.ErrorRetryInterval > 0 {
			m.retryInterval = time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
		}
	}
	return m
}

// ConfigureStages registers stage handlers. It must be called before Start.
func (m *Manager) ConfigureStages(set StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.laneOrder = m.laneOrder[:0]
	m.lanes = make(map[queue.Kind]*laneState)
	for _, entry := range []struct {
		kind    queue.Kind
		handler stage.Handler
	}{
		{queue.KindVoice, set.Voice},
		{queue.KindVideo, set.Video},
	} {
		if entry.handler == nil {
			continue
		}
		lane := newLane(entry.kind, entry.handler)
		if aware, ok := entry.handler.(stage.ProgressAware); ok {
			aware.SetProgressFunc(m.progressFunc(lane))
		}
		m.lanes[entry.kind] = lane
		m.laneOrder = append(m.laneOrder, entry.kind)
	}
}

// progressFunc records intermediate progress at the lane's entry stage for
// the pipeline carried by ctx.
func (m *Manager) progressFunc(lane *laneState) stage.ProgressFunc {
	return func(ctx context.Context, progress int, message string) error {
		id, ok := services.PipelineIDFromContext(ctx)
		if !ok {
			return services.Wrap(services.ErrValidation, lane.name(), "record progress", "pipeline id missing from context", nil)
		}
		return m.coord.Advance(ctx, id, lane.entry, progress, message)
	}
}
