package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotRunning is returned by Enqueue before Start or after Stop.
	ErrNotRunning = errors.New("jobs: queue not running")
	// ErrFull is returned when the buffer has no free slot.
	ErrFull = errors.New("jobs: queue full")
	// ErrPending is returned when a job of the same type is already waiting.
	ErrPending = errors.New("jobs: job of this type already pending")
)

const maxRetryDelay = 5 * time.Minute

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler runs a job. A non-nil error schedules a retry while attempts remain.
type Handler func(context.Context, Job) error

// ResultHook observes every finished attempt; err is nil on success.
type ResultHook func(job Job, err error, took time.Duration)

// QueueConfig tunes the worker pool. RetryDelay doubles per attempt.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	OnResult   ResultHook
	Logger     *zap.Logger
}

// Queue dispatches jobs to a fixed set of workers. Jobs of the same type
// are coalesced while one is waiting in the buffer.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs chan Job

	mu      sync.Mutex
	pending map[string]struct{}
	cancel  context.CancelFunc
	group   *errgroup.Group
	ctx     context.Context
}

// NewQueue builds an idle queue; call Start to launch the workers.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
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
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
		pending: make(map[string]struct{}),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.group != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	q.cancel, q.group, q.ctx = cancel, group, groupCtx
	for i := 0; i < q.cfg.Workers; i++ {
		group.Go(func() error {
			q.work(groupCtx)
			return nil
		})
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels in-flight retries and waits for every worker to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	group, cancel := q.group, q.cancel
	q.group, q.ctx = nil, nil
	q.mu.Unlock()
	if group == nil {
		return
	}
	cancel()
	_ = group.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue buffers job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx == nil || q.ctx.Err() != nil {
		return ErrNotRunning
	}
	if _, dup := q.pending[job.Type]; dup {
		return ErrPending
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		q.pending[job.Type] = struct{}{}
		return nil
	default:
		return ErrFull
	}
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.mu.Lock()
			delete(q.pending, job.Type)
			q.mu.Unlock()
			q.run(ctx, job)
		}
	}
}

// run executes job with exponential backoff between failed attempts.
func (q *Queue) run(ctx context.Context, job Job) {
	delay := q.cfg.RetryDelay
	for {
		start := time.Now()
		err := q.handler(ctx, job)
		if q.cfg.OnResult != nil {
			q.cfg.OnResult(job, err, time.Since(start))
		}
		if err == nil {
			return
		}
		fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
		if job.Attempt >= q.cfg.MaxRetries {
			q.logger.Error("job exhausted retries", fields...)
			return
		}
		q.logger.Warn("job failed, retrying", append(fields, zap.Duration("delay", delay))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		job.Attempt++
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
