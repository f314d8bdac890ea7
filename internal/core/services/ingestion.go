package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure IngestionPipeline implements the interface.
var _ driving.IngestionService = (*IngestionPipeline)(nil)

// IngestionPipeline turns a book's source document into its vector index.
//
// Batches are embedded and written one at a time. A failure part way
// removes the batches already written, so resubmitting the job re-ingests
// the book instead of finding a half-built index.
//
// Runs for one slug are serialised in process: a second Ingest fails with
// domain.ErrIngestionInProgress, while Remove waits for the running job.
type IngestionPipeline struct {
	loader    driven.DocumentLoader
	splitter  driven.TextSplitter
	embedder  driven.EmbeddingService
	vectors   driven.VectorStore
	batchSize int

	mu      sync.Mutex
	claimed map[string]chan struct{}
}

// NewIngestionPipeline creates an ingestion pipeline.
// A batchSize of zero or less uses domain.DefaultBatchSize.
func NewIngestionPipeline(
	loader driven.DocumentLoader,
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	batchSize int,
) *IngestionPipeline {
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}
	return &IngestionPipeline{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		vectors:   vectors,
		batchSize: batchSize,
		claimed:   make(map[string]chan struct{}),
	}
}

// Ingest builds the index for slug from the document at contentURL.
// An index that already holds passages makes the call a no-op.
func (p *IngestionPipeline) Ingest(ctx context.Context, contentURL, slug string) (domain.IngestResult, error) {
	result := domain.IngestResult{Slug: slug}

	if !domain.ValidSlug(slug) {
		return result, fmt.Errorf("%w: slug %q", domain.ErrInvalidInput, slug)
	}
	release, err := p.claim(slug)
	if err != nil {
		return result, err
	}
	defer release()

	logger.Section("Ingest " + slug)

	if err := p.loader.Stat(ctx, contentURL); err != nil {
		logger.Error("ingest %s: %v", slug, err)
		return result, err
	}

	exists, err := p.vectors.Exists(ctx, slug)
	if err != nil {
		return result, fmt.Errorf("check index: %w", err)
	}
	if exists {
		logger.Info("Index for %s already exists, skipping", slug)
		result.Skipped = true
		return result, nil
	}

	doc, err := p.loader.Load(ctx, contentURL)
	if err != nil {
		logger.Error("ingest %s: %v", slug, err)
		return result, fmt.Errorf("load document: %w", err)
	}

	texts := p.splitter.Split(doc.Content)
	if len(texts) == 0 {
		logger.Warn("Document %s produced no passages", contentURL)
		return result, nil
	}
	logger.Debug("Split %q into %d passages", doc.Title, len(texts))

	if err := p.index(ctx, slug, texts, &result); err != nil {
		if result.Batches > 0 {
			p.discard(ctx, slug)
		}
		return result, err
	}

	logger.Info("Indexed %s: %d passages in %d batches", slug, result.Passages, result.Batches)
	return result, nil
}

// index embeds texts in batches and appends them to the slug's index.
func (p *IngestionPipeline) index(ctx context.Context, slug string, texts []string, result *domain.IngestResult) error {
	model := p.embedder.ModelName()
	for start := 0; start < len(texts); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+p.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := p.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("%w: embed batch %d: %w", domain.ErrProviderFailure, result.Batches+1, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: embed batch %d: got %d vectors for %d passages",
				domain.ErrProviderFailure, result.Batches+1, len(vectors), len(batch))
		}

		passages := make([]domain.Passage, len(batch))
		for i, text := range batch {
			passages[i] = domain.Passage{
				ID:        uuid.NewString(),
				Slug:      slug,
				Position:  start + i,
				Text:      text,
				Embedding: vectors[i],
			}
		}
		if err := p.vectors.InsertBatch(ctx, slug, model, passages); err != nil {
			return fmt.Errorf("insert batch %d: %w", result.Batches+1, err)
		}

		result.Batches++
		result.Passages += len(passages)
		logger.Debug("Indexed batch %d (%d/%d passages)", result.Batches, result.Passages, len(texts))
	}
	return nil
}

// discard drops a partially written index so the next run does not
// mistake it for a finished one.
func (p *IngestionPipeline) discard(ctx context.Context, slug string) {
	if err := p.vectors.Remove(context.WithoutCancel(ctx), slug); err != nil {
		logger.Warn("Failed to discard partial index for %s: %v", slug, err)
	}
}

// Remove deletes the slug's index. A missing index is not an error.
// If the slug is being ingested, Remove blocks until that run finishes.
func (p *IngestionPipeline) Remove(ctx context.Context, slug string) error {
	if !domain.ValidSlug(slug) {
		return fmt.Errorf("%w: slug %q", domain.ErrInvalidInput, slug)
	}
	release, err := p.await(ctx, slug)
	if err != nil {
		return err
	}
	defer release()

	if err := p.vectors.Remove(ctx, slug); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	logger.Info("Removed index for %s", slug)
	return nil
}

// claim marks slug as busy for this process. The loser of a race gets
// domain.ErrIngestionInProgress instead of writing duplicate passages.
func (p *IngestionPipeline) claim(slug string) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.claimed[slug]; busy {
		return nil, fmt.Errorf("%w: %s", domain.ErrIngestionInProgress, slug)
	}
	return p.takeLocked(slug), nil
}

// await is claim that waits for the current holder instead of failing.
func (p *IngestionPipeline) await(ctx context.Context, slug string) (func(), error) {
	for {
		p.mu.Lock()
		done, busy := p.claimed[slug]
		if !busy {
			release := p.takeLocked(slug)
			p.mu.Unlock()
			return release, nil
		}
		p.mu.Unlock()

		logger.Debug("Waiting for running job on %s", slug)
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *IngestionPipeline) takeLocked(slug string) func() {
	done := make(chan struct{})
	p.claimed[slug] = done
	return func() {
		p.mu.Lock()
		delete(p.claimed, slug)
		p.mu.Unlock()
		close(done)
	}
}
