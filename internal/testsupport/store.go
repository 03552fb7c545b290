package testsupport

import (
	"context"
	"testing"

	"panelcast/internal/backend"
	"panelcast/internal/config"
)

// MustOpenBackend opens the configured backend for tests and registers cleanup.
func MustOpenBackend(t testing.TB, cfg *config.Config) *backend.Backend {
	t.Helper()

	b, err := backend.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("backend.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = b.Close()
	})
	return b
}
