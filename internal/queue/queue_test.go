package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"panelcast/internal/database"
	"panelcast/internal/queue"
)

func newBackends(t *testing.T) map[string]queue.Queue {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, err := database.Open(filepath.Join(t.TempDir(), "panelcast.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return map[string]queue.Queue{
		"memory": queue.NewMemoryQueue(),
		"redis":  queue.NewRedisQueue(client, "test:"),
		"sqlite": queue.NewSQLiteQueue(db),
	}
}

func job(id, pipeline string, kind queue.Kind) queue.Job {
	return queue.Job{
		ID:         id,
		PipelineID: pipeline,
		Kind:       kind,
		Payload:    json.RawMessage(`{"chapterName":"One"}`),
	}
}

func TestQueueFIFOPerKind(t *testing.T) {
	for name, q := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, j := range []queue.Job{
				job("j1", "p1", queue.KindVoice),
				job("j2", "p2", queue.KindVideo),
				job("j3", "p3", queue.KindVoice),
			} {
				if err := q.Enqueue(ctx, j); err != nil {
					t.Fatalf("Enqueue %s: %v", j.ID, err)
				}
			}

			depth, err := q.Depth(ctx, queue.KindVoice)
			if err != nil || depth != 2 {
				t.Fatalf("expected voice depth 2, got %d (%v)", depth, err)
			}

			first, err := q.Dequeue(ctx, queue.KindVoice, time.Second)
			if err != nil || first == nil || first.ID != "j1" {
				t.Fatalf("expected j1, got %+v (%v)", first, err)
			}
			if string(first.Payload) != `{"chapterName":"One"}` {
				t.Fatalf("payload not preserved: %s", first.Payload)
			}
			if first.EnqueuedAt.IsZero() {
				t.Fatal("expected EnqueuedAt to be stamped")
			}
			second, err := q.Dequeue(ctx, queue.KindVoice, time.Second)
			if err != nil || second == nil || second.ID != "j3" {
				t.Fatalf("expected j3, got %+v (%v)", second, err)
			}
			video, err := q.Dequeue(ctx, queue.KindVideo, time.Second)
			if err != nil || video == nil || video.PipelineID != "p2" {
				t.Fatalf("expected p2 video job, got %+v (%v)", video, err)
			}
		})
	}
}

func TestQueueDequeueEmptyTimesOut(t *testing.T) {
	for name, q := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := q.Dequeue(context.Background(), queue.KindVideo, time.Second)
			if err != nil {
				t.Fatalf("Dequeue failed: %v", err)
			}
			if got != nil {
				t.Fatalf("expected no job, got %+v", got)
			}
		})
	}
}

func TestMemoryQueueWakesWaitingConsumer(t *testing.T) {
	q := queue.NewMemoryQueue()
	done := make(chan *queue.Job, 1)
	go func() {
		j, _ := q.Dequeue(context.Background(), queue.KindVoice, 5*time.Second)
		done <- j
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Enqueue(context.Background(), job("late", "p", queue.KindVoice)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case got := <-done:
		if got == nil || got.ID != "late" {
			t.Fatalf("expected late job, got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not woken")
	}
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Dequeue(ctx, queue.KindVoice, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEnqueueRejectsInvalidJob(t *testing.T) {
	cases := map[string]queue.Job{
		"missing id":       {PipelineID: "p", Kind: queue.KindVoice, Payload: json.RawMessage(`{}`)},
		"missing pipeline": {ID: "j", Kind: queue.KindVoice, Payload: json.RawMessage(`{}`)},
		"unknown kind":     {ID: "j", PipelineID: "p", Kind: "assemble", Payload: json.RawMessage(`{}`)},
		"empty payload":    {ID: "j", PipelineID: "p", Kind: queue.KindVideo},
	}
	q := queue.NewMemoryQueue()
	for name, j := range cases {
		t.Run(name, func(t *testing.T) {
			if err := q.Enqueue(context.Background(), j); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if kind, err := queue.ParseKind(" Video "); err != nil || kind != queue.KindVideo {
		t.Fatalf("ParseKind = %q, %v", kind, err)
	}
	if _, err := queue.ParseKind("all"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
