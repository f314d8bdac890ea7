package driving

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// IngestionService builds and removes per-book vector indexes.
type IngestionService interface {
	// Ingest loads, chunks, embeds and indexes the document at contentURL under slug.
	// An already populated index makes the call a no-op with Skipped set.
	Ingest(ctx context.Context, contentURL, slug string) (domain.IngestResult, error)

	// Remove deletes the slug's index. Removing a missing index is a no-op.
	Remove(ctx context.Context, slug string) error
}

// Dispatcher accepts background jobs and reports their progress.
type Dispatcher interface {
	// Submit enqueues a job and returns its assigned ID without waiting for it to run.
	Submit(ctx context.Context, job domain.IngestionJob) (string, error)

	// Status returns the last known state of a job.
	Status(ctx context.Context, jobID string) (*domain.JobStatus, error)
}
