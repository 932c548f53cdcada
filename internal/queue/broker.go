package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("queue closed")

// Broker moves jobs from producers to workers.
type Broker interface {
	// Push enqueues a job.
	Push(ctx context.Context, job *Job) error
	// Pop blocks until a job is available, ctx is done or the broker closes.
	Pop(ctx context.Context) (*Job, error)
	Close() error
}

// MemoryBroker is an in-process broker backed by a buffered channel.
type MemoryBroker struct {
	jobs chan *Job
	done chan struct{}
	once sync.Once
}

// NewMemoryBroker creates a broker holding up to capacity pending jobs.
func NewMemoryBroker(capacity int) *MemoryBroker {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryBroker{
		jobs: make(chan *Job, capacity),
		done: make(chan struct{}),
	}
}

func (b *MemoryBroker) Push(ctx context.Context, job *Job) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.jobs <- job:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Pop(ctx context.Context) (*Job, error) {
	select {
	case job := <-b.jobs:
		return job, nil
	case <-b.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MemoryBroker) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}

// popTimeout bounds each BRPOP so cancellation is noticed.
const popTimeout = time.Second

// RedisBroker stores jobs in a Redis list: LPUSH to enqueue, BRPOP to take.
type RedisBroker struct {
	client *redis.Client
	name   string
}

// NewRedisBroker connects to the Redis server at url, e.g.
// redis://localhost:6379/0, and uses the list called name.
func NewRedisBroker(ctx context.Context, url, name string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisBrokerFromClient(client, name), nil
}

// NewRedisBrokerFromClient wraps an existing client.
func NewRedisBrokerFromClient(client *redis.Client, name string) *RedisBroker {
	return &RedisBroker{client: client, name: name}
}

func (b *RedisBroker) Push(ctx context.Context, job *Job) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := b.client.LPush(ctx, b.name, payload).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

func (b *RedisBroker) Pop(ctx context.Context) (*Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// result[0] is the list name, result[1] the payload
		result, err := b.client.BRPop(ctx, popTimeout, b.name).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrClosed
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("pop job: %w", err)
		}
		return decodeJob(result[1])
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
