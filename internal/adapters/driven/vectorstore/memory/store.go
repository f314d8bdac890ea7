// Package memory provides an in-memory, brute-force cosine vector index per slug.
// Nothing is persisted; it backs tests and throwaway runs.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type index struct {
	space    vectorstore.Space
	passages []domain.Passage
}

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

// New creates an empty store.
func New() *Store {
	return &Store{indexes: make(map[string]*index)}
}

// Exists reports whether the slug has any passages.
func (s *Store) Exists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[slug]
	return ok && len(idx.passages) > 0, nil
}

// InsertBatch appends passages, creating the slug's index on first use.
func (s *Store) InsertBatch(_ context.Context, slug, model string, passages []domain.Passage) error {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return err
	}
	dim, err := vectorstore.ValidateBatch(passages)
	if err != nil || dim == 0 {
		return err
	}
	incoming := vectorstore.Space{Model: model, Dimension: dim}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[slug]
	if !ok {
		idx = &index{space: incoming}
		s.indexes[slug] = idx
	} else if err := idx.space.Check(incoming); err != nil {
		return err
	}
	for _, p := range passages {
		p.Slug = slug
		p.Embedding = append([]float32(nil), p.Embedding...)
		idx.passages = append(idx.passages, p)
	}
	return nil
}

// Query ranks the slug's passages by cosine similarity to vector.
func (s *Store) Query(_ context.Context, slug, model string, vector []float32, k int) ([]domain.ScoredPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[slug]
	if !ok || len(idx.passages) == 0 || k <= 0 {
		return []domain.ScoredPassage{}, nil
	}
	if err := idx.space.Check(vectorstore.Space{Model: model, Dimension: len(vector)}); err != nil {
		return nil, err
	}

	hits := make([]domain.ScoredPassage, 0, len(idx.passages))
	for _, p := range idx.passages {
		hits = append(hits, domain.ScoredPassage{
			Text:     p.Text,
			Position: p.Position,
			Score:    vectorstore.Cosine(p.Embedding, vector),
		})
	}
	return vectorstore.Rank(hits, k), nil
}

// Count returns the number of passages stored for the slug.
func (s *Store) Count(_ context.Context, slug string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indexes[slug]; ok {
		return len(idx.passages), nil
	}
	return 0, nil
}

// Remove drops the slug's index.
func (s *Store) Remove(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, slug)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
