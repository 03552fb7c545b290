package services_test

import (
	"context"
	"testing"

	"panelcast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPipelineID(ctx, "pipe-1")
	ctx = services.WithJobID(ctx, "job-9")
	ctx = services.WithStage(ctx, "video")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.PipelineIDFromContext(ctx); !ok || id != "pipe-1" {
		t.Fatalf("unexpected pipeline id: %v %v", id, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-9" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "video" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithPipelineID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.PipelineIDFromContext(ctx); ok {
		t.Fatal("expected no pipeline id value")
	}
}
