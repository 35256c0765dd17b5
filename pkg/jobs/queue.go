package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue errors.
var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Job represents a queued background task. Attempt starts at 1.
type Job struct {
	ID       string
	Kind     string
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. Returning an error schedules a retry.
type Handler func(context.Context, Job) error

// GiveUpFunc is called once a job has failed on its final attempt.
type GiveUpFunc func(context.Context, Job, error)

// Config configures worker pool behaviour.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	OnGiveUp   GiveUpFunc
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by a fixed worker pool.
// Jobs may be enqueued before Run starts; they wait in the buffer.
type Queue struct {
	name    string
	handler Handler
	cfg     Config

	jobs    chan Job
	mu      sync.RWMutex
	closed  bool
	retries sync.WaitGroup
}

// NewQueue builds a queue named for logging.
func NewQueue(name string, handler Handler, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{name: name, handler: handler, cfg: cfg, jobs: make(chan Job, cfg.BufferSize)}
}

// Enqueue adds job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if job.Attempt == 0 {
		job.Attempt = 1
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

// Pending returns the number of buffered jobs.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Run consumes jobs until ctx is cancelled, then closes the queue and waits
// for in-flight handlers. It always returns nil so it composes with errgroup.
func (q *Queue) Run(ctx context.Context) error {
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
	var wg sync.WaitGroup
	for i := 0; i < q.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}
	<-ctx.Done()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	wg.Wait()
	q.retries.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name), zap.Int("dropped", len(q.jobs)))
	return nil
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(ctx, job); err != nil {
				q.fail(ctx, job, err)
			}
		}
	}
}

func (q *Queue) fail(ctx context.Context, job Job, err error) {
	if job.Attempt > q.cfg.MaxRetries {
		q.cfg.Logger.Error("job exceeded retries",
			zap.String("queue", q.name), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		if q.cfg.OnGiveUp != nil {
			q.cfg.OnGiveUp(ctx, job, err)
		}
		return
	}
	q.cfg.Logger.Warn("job failed, retrying",
		zap.String("queue", q.name), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))

	job.Attempt++
	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.cfg.Logger.Error("failed to requeue job", zap.String("queue", q.name), zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}()
}
