package domain

import "time"

// JobKind identifies what a queued job does.
type JobKind string

const (
	// JobIngest builds a book's vector index.
	JobIngest JobKind = "ingest"

	// JobRemove deletes a book's vector index.
	JobRemove JobKind = "remove"
)

// IsValid returns true if the kind is recognised.
func (k JobKind) IsValid() bool {
	return k == JobIngest || k == JobRemove
}

// IngestionJob is a unit of background work held by the job queue.
// It is identified for deduplication purposes by (ContentURL, Slug).
type IngestionJob struct {
	// ID is assigned on submission.
	ID string `json:"id"`

	// Kind is what the job does.
	Kind JobKind `json:"kind"`

	// ContentURL is the source document. Empty for removal.
	ContentURL string `json:"content_url,omitempty"`

	// Slug addresses the vector index.
	Slug string `json:"slug"`

	// SubmittedAt is when the job was accepted.
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobState is the lifecycle of a submitted job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// IsTerminal returns true once the job will not change state again.
func (s JobState) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// JobStatus reports the progress of a submitted job.
type JobStatus struct {
	Job        IngestionJob `json:"job"`
	State      JobState     `json:"state"`
	Error      string       `json:"error,omitempty"`
	Passages   int          `json:"passages"`
	Skipped    bool         `json:"skipped"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// IngestResult summarises one ingestion run.
type IngestResult struct {
	// Slug is the index that was populated.
	Slug string

	// Passages is the number of passages written by this run.
	Passages int

	// Batches is the number of embedding batches processed.
	Batches int

	// Skipped is true when the index already existed and nothing was written.
	Skipped bool
}
