// Package local provides an in-process job queue backed by a buffered channel.
package local

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/queue"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// Default pool sizing.
const (
	DefaultWorkers = 2
	DefaultBuffer  = 64
)

// Queue runs jobs on a fixed pool of goroutines.
// Jobs still buffered when the process exits are lost.
type Queue struct {
	jobs    chan domain.IngestionJob
	workers int

	mu     sync.RWMutex
	closed bool
}

// New creates a queue. Non-positive sizes use the defaults.
func New(workers, buffer int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Queue{
		jobs:    make(chan domain.IngestionJob, buffer),
		workers: workers,
	}
}

// Enqueue buffers job without blocking. A full buffer is an error.
func (q *Queue) Enqueue(ctx context.Context, job domain.IngestionJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return queue.ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %d jobs waiting", queue.ErrFull, cap(q.jobs))
	}
}

// Run starts the workers and blocks until ctx is cancelled or the queue is
// closed and drained.
func (q *Queue) Run(ctx context.Context, handler driven.JobHandler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range q.workers {
		g.Go(func() error {
			logger.Debug("Local worker %d started", i)
			for {
				select {
				case <-gctx.Done():
					return nil
				case job, ok := <-q.jobs:
					if !ok {
						return nil
					}
					runJob(gctx, handler, job)
				}
			}
		})
	}
	return g.Wait()
}

// Close stops accepting jobs. Running workers finish what is buffered.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

// runJob invokes handler and keeps a panicking job from killing its worker.
func runJob(ctx context.Context, handler driven.JobHandler, job domain.IngestionJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job %s panicked: %v", job.ID, r)
		}
	}()
	if err := handler(ctx, job); err != nil {
		logger.Warn("job %s (%s %s) failed: %v", job.ID, job.Kind, job.Slug, err)
	}
}
