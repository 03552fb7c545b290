package stage

import (
	"context"
	"encoding/json"

	"panelcast/internal/queue"
)

// Handler describes the contract a stage worker needs from each stage.
//
// Prepare rejects a job before stage entry is recorded. Execute returns the
// payload handed to the next stage and the message recorded on completion.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) (Result, error)
	HealthCheck(context.Context) Health
}

// Health summarizes whether a stage can accept work.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports name as ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports name as not ready because of detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// Result is the output of a completed stage.
type Result struct {
	Payload json.RawMessage
	Message string
}

// ProgressFunc records intermediate progress for the pipeline carried by ctx.
type ProgressFunc func(ctx context.Context, progress int, message string) error

// ProgressAware is implemented by handlers that report progress while
// executing.
type ProgressAware interface {
	SetProgressFunc(ProgressFunc)
}
