package status

import (
	"context"
	"io"
)

// Store persists pipeline instances keyed by identifier.
type Store interface {
	// Get returns the recorded instance or ErrNotFound.
	Get(ctx context.Context, id string) (Instance, error)
	// Set overwrites the instance for inst.ID.
	Set(ctx context.Context, inst Instance) error
	io.Closer
}
