package queue

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/story-shorts/internal/storage"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

func TestMemoryBroker(t *testing.T) {
	b := NewMemoryBroker(2)
	ctx := context.Background()

	job := NewJob(types.SourceAPI, types.Post{Title: "My Story", Text: "..."})
	if err := b.Push(ctx, job); err != nil {
		t.Fatal(err)
	}
	got, err := b.Pop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != job.ID {
		t.Fatalf("got job %s, want %s", got.ID, job.ID)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := b.Pop(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	b.Close()
	if _, err := b.Pop(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := b.Push(ctx, job); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func newRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBrokerFromClient(client, "q_video_create")
	t.Cleanup(func() { b.Close() })
	return b, mr
}

func TestRedisBrokerFIFO(t *testing.T) {
	b, mr := newRedisBroker(t)
	ctx := context.Background()

	first := NewJob(types.SourceScheduled, types.Post{ID: "abc", Subreddit: "TIFU", Title: "First"})
	second := NewJob(types.SourceAPI, types.Post{Title: "Second"})
	for _, j := range []*Job{first, second} {
		if err := b.Push(ctx, j); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := mr.List("q_video_create"); len(n) != 2 {
		t.Fatalf("expected 2 queued payloads, got %d", len(n))
	}

	got, err := b.Pop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != first.ID || got.Post.Subreddit != "TIFU" || got.SourceType != types.SourceScheduled {
		t.Fatalf("unexpected job %+v", got)
	}
	got, err = b.Pop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Fatalf("expected second job, got %+v", got)
	}
}

func TestRedisBrokerMalformedPayload(t *testing.T) {
	b, mr := newRedisBroker(t)
	mr.Lpush("q_video_create", "not json")

	if _, err := b.Pop(context.Background()); err == nil || !strings.Contains(err.Error(), "decode job") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestRedisBrokerCancelled(t *testing.T) {
	b, _ := newRedisBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Pop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type runnerFunc func(ctx context.Context, taskID string, post types.Post) (*pipeline.Result, error)

func (f runnerFunc) Run(ctx context.Context, taskID string, post types.Post) (*pipeline.Result, error) {
	return f(ctx, taskID, post)
}

func startPool(t *testing.T, runner Runner) (*WorkerPool, *storage.MetadataDB) {
	t.Helper()
	db, err := storage.NewMetadataDB(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	broker := NewMemoryBroker(10)
	pool := NewWorkerPool(2, broker, runner, db, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("worker pool did not stop")
		}
	})
	return pool, db
}

func waitForStatus(t *testing.T, pool *WorkerPool, id string, terminal ...string) *types.TaskRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := pool.Status(id)
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range terminal {
			if task.Status == s {
				return task
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %v", id, terminal)
	return nil
}

func TestWorkerPoolCompletesTask(t *testing.T) {
	var calls atomic.Int32
	pool, _ := startPool(t, runnerFunc(func(ctx context.Context, taskID string, post types.Post) (*pipeline.Result, error) {
		calls.Add(1)
		return &pipeline.Result{Summary: "Created 2 video(s) for post '" + post.Title + "'"}, nil
	}))

	id, err := pool.Submit(context.Background(), types.SourceAPI, types.Post{Title: "My Story", Text: "..."})
	if err != nil {
		t.Fatal(err)
	}
	task := waitForStatus(t, pool, id, types.StatusCompleted, types.StatusFailed)
	if task.Status != types.StatusCompleted || task.Result != "Created 2 video(s) for post 'My Story'" {
		t.Fatalf("unexpected task %+v", task)
	}
	if calls.Load() != 1 {
		t.Fatalf("runner called %d times", calls.Load())
	}
}

func TestWorkerPoolFailedTask(t *testing.T) {
	pool, _ := startPool(t, runnerFunc(func(ctx context.Context, taskID string, post types.Post) (*pipeline.Result, error) {
		return nil, errors.New("failed to generate script for My Story")
	}))

	id, err := pool.Submit(context.Background(), types.SourceAPI, types.Post{Title: "My Story"})
	if err != nil {
		t.Fatal(err)
	}
	task := waitForStatus(t, pool, id, types.StatusCompleted, types.StatusFailed)
	if task.Status != types.StatusFailed || !strings.Contains(task.Error, "failed to generate script") {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestWorkerPoolRecoversPanic(t *testing.T) {
	var calls atomic.Int32
	pool, _ := startPool(t, runnerFunc(func(ctx context.Context, taskID string, post types.Post) (*pipeline.Result, error) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return &pipeline.Result{Summary: "ok"}, nil
	}))

	ctx := context.Background()
	first, _ := pool.Submit(ctx, types.SourceCLI, types.Post{Title: "One"})
	task := waitForStatus(t, pool, first, types.StatusCompleted, types.StatusFailed)
	if task.Status != types.StatusFailed || task.Error != "worker panic: boom" {
		t.Fatalf("unexpected task %+v", task)
	}

	// The pool keeps serving after a panic.
	second, _ := pool.Submit(ctx, types.SourceCLI, types.Post{Title: "Two"})
	if task := waitForStatus(t, pool, second, types.StatusCompleted, types.StatusFailed); task.Status != types.StatusCompleted {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestSubmitPushFailureMarksTaskFailed(t *testing.T) {
	db, err := storage.NewMetadataDB(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	broker := NewMemoryBroker(1)
	broker.Close()
	pool := NewWorkerPool(1, broker, nil, db, zerolog.Nop())

	if _, err := pool.Submit(context.Background(), types.SourceAPI, types.Post{Title: "My Story"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
