package driven

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// JobHandler executes one dequeued job.
type JobHandler func(ctx context.Context, job domain.IngestionJob) error

// JobQueue is an asynchronous, at-least-once job transport.
type JobQueue interface {
	// Enqueue hands a job to the transport and returns without waiting for it to run.
	Enqueue(ctx context.Context, job domain.IngestionJob) error

	// Run consumes jobs and invokes handler for each until ctx is cancelled
	// or the queue is closed.
	Run(ctx context.Context, handler JobHandler) error

	// Close stops accepting jobs and releases resources.
	Close() error
}
