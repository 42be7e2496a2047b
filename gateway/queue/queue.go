package queue

import (
	"context"
	"log/slog"
)

type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue runs background jobs one at a time so a slow partner sweep never
// stalls the caller that scheduled it.
type Queue struct {
	jobs   chan Job
	logger *slog.Logger
}

func New(size int, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:   make(chan Job, size),
		logger: logger,
	}
}

// Enqueue is non-blocking; it reports false when the queue is full.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		q.logger.Warn("queue full, dropping job", "job", job.Name)
		return false
	}
}

// Start launches the runner goroutine. It exits when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.jobs:
				q.logger.Info("running job", "job", job.Name)
				if err := job.Run(ctx); err != nil {
					q.logger.Error("job failed", "job", job.Name, "err", err)
				}
			}
		}
	}()
}
