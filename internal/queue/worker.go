package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/story-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// Runner executes the video pipeline for one post.
type Runner interface {
	Run(ctx context.Context, taskID string, post types.Post) (*pipeline.Result, error)
}

// TaskStore persists task state.
type TaskStore interface {
	CreateTask(task types.TaskRecord) error
	UpdateTaskStatus(id, status, result, errMsg string) error
	GetTask(id string) (*types.TaskRecord, error)
}

// retryDelay is the pause after a broker error before popping again.
const retryDelay = time.Second

// WorkerPool manages a pool of workers processing video jobs
type WorkerPool struct {
	broker      Broker
	runner      Runner
	store       TaskStore
	workerCount int
	logger      zerolog.Logger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, broker Broker, runner Runner, store TaskStore, logger zerolog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		broker:      broker,
		runner:      runner,
		store:       store,
		workerCount: workerCount,
		logger:      logger.With().Str("component", "queue").Logger(),
	}
}

// Submit records a new task as QUEUED and enqueues it. It returns the task ID.
func (wp *WorkerPool) Submit(ctx context.Context, sourceType string, post types.Post) (string, error) {
	job := NewJob(sourceType, post)
	err := wp.store.CreateTask(types.TaskRecord{
		ID:         job.ID,
		Title:      post.Title,
		SourceType: sourceType,
		Status:     types.StatusQueued,
		CreatedAt:  job.CreatedAt,
	})
	if err != nil {
		return "", err
	}

	if err := wp.broker.Push(ctx, job); err != nil {
		wp.setStatus(job.ID, types.StatusFailed, "", err.Error())
		return "", fmt.Errorf("enqueue task: %w", err)
	}

	wp.logger.Info().
		Str("task_id", job.ID).
		Str("source", sourceType).
		Str("title", post.Title).
		Msg("task enqueued")
	return job.ID, nil
}

// Status returns the stored state of a task.
func (wp *WorkerPool) Status(id string) (*types.TaskRecord, error) {
	return wp.store.GetTask(id)
}

// Run starts the workers and blocks until ctx is done or the broker closes.
func (wp *WorkerPool) Run(ctx context.Context) error {
	wp.logger.Info().Int("workers", wp.workerCount).Msg("starting worker pool")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < wp.workerCount; i++ {
		id := i
		g.Go(func() error {
			wp.worker(ctx, id)
			return nil
		})
	}
	return g.Wait()
}

// worker processes jobs until the broker is exhausted
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger := wp.logger.With().Int("worker", id).Logger()
	logger.Debug().Msg("worker started")

	for {
		job, err := wp.broker.Pop(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrClosed), ctx.Err() != nil:
			logger.Debug().Msg("worker stopped")
			return
		default:
			logger.Error().Err(err).Msg("failed to take job")
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		wp.process(ctx, logger, job)
	}
}

// process runs one job, converting a panic into a FAILED task
func (wp *WorkerPool) process(ctx context.Context, logger zerolog.Logger, job *Job) {
	logger = logger.With().Str("task_id", job.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("stack", string(debug.Stack())).
				Msgf("panic processing task: %v", r)
			wp.setStatus(job.ID, types.StatusFailed, "", fmt.Sprintf("worker panic: %v", r))
		}
	}()

	logger.Info().Str("title", job.Post.Title).Msg("processing task")
	wp.setStatus(job.ID, types.StatusProcessing, "", "")

	res, err := wp.runner.Run(ctx, job.ID, job.Post)
	if err != nil {
		logger.Error().Err(err).Msg("task failed")
		wp.setStatus(job.ID, types.StatusFailed, "", err.Error())
		return
	}

	wp.setStatus(job.ID, types.StatusCompleted, res.Summary, "")
	logger.Info().Int("videos", len(res.Videos)).Msg(res.Summary)
}

func (wp *WorkerPool) setStatus(id, status, result, errMsg string) {
	if err := wp.store.UpdateTaskStatus(id, status, result, errMsg); err != nil {
		wp.logger.Error().Err(err).Str("task_id", id).Str("status", status).Msg("failed to update task status")
	}
}
