package workflow

import (
	"log/slog"

	"panelcast/internal/queue"
	"panelcast/internal/stage"
	"panelcast/internal/status"
)

// StageSet enumerates the handlers the workflow can drive. A nil handler
// leaves its lane unconfigured so a process can run a single stage.
type StageSet struct {
	Voice stage.Handler
	Video stage.Handler
}

// laneState binds a stage handler to the queue it consumes and the status
// records it writes.
type laneState struct {
	kind     queue.Kind
	handler  stage.Handler
	entry    status.Stage
	done     status.Stage
	startMsg string
	next     queue.Kind
	logger   *slog.Logger
}

func newLane(kind queue.Kind, handler stage.Handler) *laneState {
	lane := &laneState{kind: kind, handler: handler}
	switch kind {
	case queue.KindVoice:
		lane.entry = status.StageVoice
		lane.startMsg = "Resolving narration audio"
		lane.next = queue.KindVideo
	case queue.KindVideo:
		lane.entry = status.StageVideo
		lane.startMsg = "Rendering panels"
	}
	lane.done, _ = lane.entry.Next()
	return lane
}

func (l *laneState) name() string {
	return string(l.kind)
}
