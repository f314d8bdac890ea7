package driven

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// VectorStore holds one isolated vector index per book slug.
// Handles are opened lazily on first use and persist across restarts.
type VectorStore interface {
	// Exists reports whether persisted passages are present for the slug.
	Exists(ctx context.Context, slug string) (bool, error)

	// InsertBatch appends passages to the slug's index, creating it if needed.
	// It may be called repeatedly with successive batches of one ingestion run.
	// model names the embedding model that produced the vectors; an index built
	// with a different model or dimension rejects the batch.
	InsertBatch(ctx context.Context, slug, model string, passages []domain.Passage) error

	// Query returns up to k passages ordered by similarity descending.
	// A slug with no index yields an empty result, not an error.
	Query(ctx context.Context, slug, model string, vector []float32, k int) ([]domain.ScoredPassage, error)

	// Count returns the number of passages stored for the slug.
	Count(ctx context.Context, slug string) (int, error)

	// Remove deletes the slug's index entirely. Removing a missing slug is a no-op.
	Remove(ctx context.Context, slug string) error

	// Close releases all open handles.
	Close() error
}
