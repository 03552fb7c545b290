package preflight

import (
	"context"

	"panelcast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir),
	}
	if cfg.Store.Backend == "sqlite" {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	results = append(results, CheckBinaries(cfg)...)
	results = append(results, CheckBackend(ctx, cfg))
	return results
}

// Failed returns the names of required checks that did not pass.
func Failed(results []Result) []string {
	var failed []string
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r.Name)
		}
	}
	return failed
}
