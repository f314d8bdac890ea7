package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion Errors.

	// ErrSourceNotFound indicates a book's content URL does not resolve to a readable document.
	// Fatal to the ingestion attempt; it is not retried automatically.
	ErrSourceNotFound = errors.New("source document not found")

	// ErrIngestionInProgress indicates another ingestion run already holds the slug.
	ErrIngestionInProgress = errors.New("ingestion already in progress")

	// ErrIndexUnavailable indicates the vector index could not be opened, written or queried.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrQueueUnavailable indicates a job could not be handed to the job queue.
	ErrQueueUnavailable = errors.New("job queue unavailable")

	// Provider Errors.

	// ErrProviderFailure indicates the embedding or generation backend failed.
	ErrProviderFailure = errors.New("provider failure")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Catalog and Session Errors.

	// ErrBookNotFound indicates the referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrSessionNotFound indicates the referenced chat session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrForbidden indicates the caller is not allowed to act on an existing resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized indicates the caller could not be identified.
	ErrUnauthorized = errors.New("unauthorized")
)
