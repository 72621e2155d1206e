package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler enqueues a job of the given type on a fixed interval.
type Scheduler struct {
	queue    *Queue
	jobType  string
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewScheduler ties a ticker to queue. The first job is enqueued immediately.
func NewScheduler(queue *Queue, jobType string, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		queue:    queue,
		jobType:  jobType,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start runs the ticker until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.fire()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.fire()
			}
		}
	}()
}

// Stop halts the ticker and waits for it to exit.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) fire() {
	err := s.queue.Enqueue(Job{Type: s.jobType})
	switch {
	case err == nil:
	case errors.Is(err, ErrPending):
		s.logger.Debug("previous run still queued", zap.String("type", s.jobType))
	default:
		s.logger.Warn("scheduled job not enqueued", zap.String("type", s.jobType), zap.Error(err))
	}
}
