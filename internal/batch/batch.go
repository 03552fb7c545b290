// Package batch renders a chapter's panels in fixed-width batches. All panels
// of a batch render concurrently and the next batch starts only after every
// panel of the current one has finished.
package batch

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"panelcast/internal/logging"
	"panelcast/internal/narration"
	"panelcast/internal/render"
)

// DefaultConcurrency is the batch width used when none is configured.
const DefaultConcurrency = 3

// PanelRenderer renders a single panel.
type PanelRenderer interface {
	Render(ctx context.Context, panel narration.Panel, outputPath string) render.Outcome
}

// Progress is reported after every batch barrier.
type Progress struct {
	Batch     int
	Batches   int
	Completed int
	Total     int
}

// Scheduler drives a PanelRenderer over a chapter.
type Scheduler struct {
	Renderer PanelRenderer
	// OutputPath returns the clip location for a panel.
	OutputPath func(narration.Panel) string
	// OnBatch, when set, is called after each barrier.
	OnBatch func(Progress)
	Logger  *slog.Logger
}

// Batches returns how many barriers n panels need at width concurrency.
func Batches(n, concurrency int) int {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return (n + concurrency - 1) / concurrency
}

// RenderAll renders every panel and returns exactly one outcome per panel,
// sorted by panel index. A width <= 0 uses DefaultConcurrency. When ctx is
// cancelled between batches, the remaining panels are reported as failed
// without being started.
func (s *Scheduler) RenderAll(ctx context.Context, panels []narration.Panel, concurrency int) []render.Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	outcomes := make([]render.Outcome, len(panels))
	total := Batches(len(panels), concurrency)
	completed := 0
	for batchIndex, batch := range slices.Collect(slices.Chunk(panels, concurrency)) {
		offset := batchIndex * concurrency
		if err := ctx.Err(); err != nil {
			for i, panel := range panels[offset:] {
				outcomes[offset+i] = render.Failed(panel.Index, render.ReasonEncode, "not started: "+err.Error())
			}
			logging.WarnWithContext(logger, "panel rendering interrupted", "render_interrupted",
				logging.Int("batch", batchIndex+1),
				logging.Int("skipped", len(panels)-offset),
				logging.String(logging.FieldErrorHint, "resubmit the chapter"),
				logging.String(logging.FieldImpact, "remaining panels are missing from the chapter video"),
			)
			break
		}

		var g errgroup.Group
		for i, panel := range batch {
			g.Go(func() error {
				outcomes[offset+i] = s.Renderer.Render(ctx, panel, s.OutputPath(panel))
				return nil
			})
		}
		_ = g.Wait()

		completed += len(batch)
		logger.Debug("panel batch finished",
			logging.Int("batch", batchIndex+1),
			logging.Int("batches", total),
			logging.Int("completed", completed),
			logging.Int(logging.FieldPanelCount, len(panels)),
		)
		if s.OnBatch != nil {
			s.OnBatch(Progress{Batch: batchIndex + 1, Batches: total, Completed: completed, Total: len(panels)})
		}
	}

	slices.SortStableFunc(outcomes, func(a, b render.Outcome) int { return a.Index - b.Index })
	return outcomes
}
