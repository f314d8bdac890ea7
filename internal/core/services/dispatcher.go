package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure JobDispatcher implements the interface.
var _ driving.Dispatcher = (*JobDispatcher)(nil)

// DefaultStatusRetention is how long finished job statuses are kept.
const DefaultStatusRetention = time.Hour

// JobDispatcher hands ingestion jobs to a queue and tracks their progress.
// Status is held in process memory; a job run by a separate worker process
// stays "queued" from this process's point of view.
type JobDispatcher struct {
	queue     driven.JobQueue
	retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	statuses map[string]*domain.JobStatus
}

// NewJobDispatcher creates a dispatcher on top of queue.
func NewJobDispatcher(queue driven.JobQueue) *JobDispatcher {
	return &JobDispatcher{
		queue:     queue,
		retention: DefaultStatusRetention,
		now:       time.Now,
		statuses:  make(map[string]*domain.JobStatus),
	}
}

// Submit validates and enqueues job. It never waits for the job to run.
func (d *JobDispatcher) Submit(ctx context.Context, job domain.IngestionJob) (string, error) {
	if !job.Kind.IsValid() {
		return "", fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidInput, job.Kind)
	}
	if !domain.ValidSlug(job.Slug) {
		return "", fmt.Errorf("%w: slug %q", domain.ErrInvalidInput, job.Slug)
	}
	if job.Kind == domain.JobIngest && job.ContentURL == "" {
		return "", fmt.Errorf("%w: content URL is required", domain.ErrInvalidInput)
	}

	job.ID = uuid.NewString()
	job.SubmittedAt = d.now().UTC()

	d.mu.Lock()
	d.pruneLocked()
	d.statuses[job.ID] = &domain.JobStatus{Job: job, State: domain.JobQueued}
	d.mu.Unlock()

	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.mu.Lock()
		delete(d.statuses, job.ID)
		d.mu.Unlock()
		return "", fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
	}

	logger.Debug("Submitted %s job %s for %s", job.Kind, job.ID, job.Slug)
	return job.ID, nil
}

// Status returns a copy of the job's last known state.
func (d *JobDispatcher) Status(_ context.Context, jobID string) (*domain.JobStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	status, ok := d.statuses[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	}
	cp := *status
	return &cp, nil
}

// Handler returns the queue handler that runs jobs through ingestion.
func (d *JobDispatcher) Handler(ingestion driving.IngestionService) driven.JobHandler {
	return func(ctx context.Context, job domain.IngestionJob) error {
		d.update(job, func(s *domain.JobStatus) {
			started := d.now().UTC()
			s.State = domain.JobRunning
			s.StartedAt = &started
		})

		var (
			result domain.IngestResult
			err    error
		)
		switch job.Kind {
		case domain.JobIngest:
			result, err = ingestion.Ingest(ctx, job.ContentURL, job.Slug)
		case domain.JobRemove:
			err = ingestion.Remove(ctx, job.Slug)
		default:
			err = fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidInput, job.Kind)
		}

		d.update(job, func(s *domain.JobStatus) {
			finished := d.now().UTC()
			s.FinishedAt = &finished
			s.Passages = result.Passages
			s.Skipped = result.Skipped
			if err != nil {
				s.State = domain.JobFailed
				s.Error = err.Error()
				return
			}
			s.State = domain.JobSucceeded
		})

		if err != nil {
			logger.Error("%s job %s for %s failed: %v", job.Kind, job.ID, job.Slug, err)
			if errors.Is(err, domain.ErrIngestionInProgress) {
				return nil
			}
		}
		return err
	}
}

// update applies fn to the job's status, creating it for jobs submitted
// by another process.
func (d *JobDispatcher) update(job domain.IngestionJob, fn func(*domain.JobStatus)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	status, ok := d.statuses[job.ID]
	if !ok {
		status = &domain.JobStatus{Job: job, State: domain.JobQueued}
		d.statuses[job.ID] = status
	}
	fn(status)
}

// pruneLocked drops finished statuses older than the retention window.
func (d *JobDispatcher) pruneLocked() {
	cutoff := d.now().Add(-d.retention)
	for id, s := range d.statuses {
		if s.State.IsTerminal() && s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(d.statuses, id)
		}
	}
}
