// Package vectorstoretest provides behaviour tests shared by every driven.VectorStore backend.
package vectorstoretest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// Model is the embedding model name used by the conformance passages.
const Model = "test-embed"

// Passages builds n passages whose embeddings point progressively away from [1, 0, 0].
func Passages(slug string, start, n int) []domain.Passage {
	out := make([]domain.Passage, n)
	for i := range out {
		pos := start + i
		out[i] = domain.Passage{
			ID:        fmt.Sprintf("%s-%d", slug, pos),
			Slug:      slug,
			Position:  pos,
			Text:      fmt.Sprintf("passage %d", pos),
			Embedding: []float32{1, float32(pos), 0},
		}
	}
	return out
}

// Run exercises the VectorStore contract against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) driven.VectorStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing slug is empty not an error", func(t *testing.T) {
		s := newStore(t)

		exists, err := s.Exists(ctx, "nothing-1")
		require.NoError(t, err)
		assert.False(t, exists)

		hits, err := s.Query(ctx, "nothing-1", Model, []float32{1, 0, 0}, 20)
		require.NoError(t, err)
		assert.Empty(t, hits)

		n, err := s.Count(ctx, "nothing-1")
		require.NoError(t, err)
		assert.Zero(t, n)

		exists, err = s.Exists(ctx, "nothing-1")
		require.NoError(t, err)
		assert.False(t, exists, "querying must not create an index")
	})

	t.Run("insert across batches then query ordered", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.InsertBatch(ctx, "moby-dick-7", Model, Passages("moby-dick-7", 0, 3)))
		require.NoError(t, s.InsertBatch(ctx, "moby-dick-7", Model, Passages("moby-dick-7", 3, 2)))

		exists, err := s.Exists(ctx, "moby-dick-7")
		require.NoError(t, err)
		assert.True(t, exists)

		n, err := s.Count(ctx, "moby-dick-7")
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		hits, err := s.Query(ctx, "moby-dick-7", Model, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "passage 0", hits[0].Text)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
	})

	t.Run("k larger than index returns all", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertBatch(ctx, "dune-2", Model, Passages("dune-2", 0, 2)))

		hits, err := s.Query(ctx, "dune-2", Model, []float32{1, 1, 0}, 20)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("slugs are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertBatch(ctx, "dune-2", Model, Passages("dune-2", 0, 2)))
		require.NoError(t, s.InsertBatch(ctx, "emma-3", Model, Passages("emma-3", 0, 4)))

		n, err := s.Count(ctx, "dune-2")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, s.Remove(ctx, "dune-2"))
		exists, err := s.Exists(ctx, "dune-2")
		require.NoError(t, err)
		assert.False(t, exists)

		n, err = s.Count(ctx, "emma-3")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("remove missing slug is a no-op", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Remove(ctx, "ghost-9"))
	})

	t.Run("embedding space mismatch is rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertBatch(ctx, "emma-3", Model, Passages("emma-3", 0, 1)))

		err := s.InsertBatch(ctx, "emma-3", "other-model", Passages("emma-3", 1, 1))
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)

		_, err = s.Query(ctx, "emma-3", Model, []float32{1, 0}, 5)
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})

	t.Run("invalid slug is rejected", func(t *testing.T) {
		s := newStore(t)
		err := s.InsertBatch(ctx, "../escape", Model, Passages("x", 0, 1))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
