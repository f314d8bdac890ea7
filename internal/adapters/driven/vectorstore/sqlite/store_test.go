package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore/vectorstoretest"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestStore_Conformance(t *testing.T) {
	vectorstoretest.Run(t, func(t *testing.T) driven.VectorStore {
		return newTestStore(t)
	})
}

func TestStore_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first, err := New(root)
	require.NoError(t, err)
	require.NoError(t, first.InsertBatch(ctx, "moby-dick-7", vectorstoretest.Model, vectorstoretest.Passages("moby-dick-7", 0, 3)))
	require.NoError(t, first.Close())

	second, err := New(root)
	require.NoError(t, err)
	defer second.Close()

	exists, err := second.Exists(ctx, "moby-dick-7")
	require.NoError(t, err)
	assert.True(t, exists)

	hits, err := second.Query(ctx, "moby-dick-7", vectorstoretest.Model, []float32{1, 0, 0}, 20)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestStore_SeesIndexRebuiltByAnotherProcess(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	server, err := New(root)
	require.NoError(t, err)
	defer server.Close()
	worker, err := New(root)
	require.NoError(t, err)
	defer worker.Close()

	require.NoError(t, worker.InsertBatch(ctx, "moby-dick-7", vectorstoretest.Model, vectorstoretest.Passages("moby-dick-7", 0, 1)))
	hits, err := server.Query(ctx, "moby-dick-7", vectorstoretest.Model, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "passage 0", hits[0].Text)

	// Removed elsewhere: the cached handle must not keep serving the old file.
	require.NoError(t, worker.Remove(ctx, "moby-dick-7"))
	exists, err := server.Exists(ctx, "moby-dick-7")
	require.NoError(t, err)
	assert.False(t, exists)

	// Rebuilt elsewhere with different content.
	require.NoError(t, worker.InsertBatch(ctx, "moby-dick-7", vectorstoretest.Model, vectorstoretest.Passages("moby-dick-7", 5, 1)))
	hits, err = server.Query(ctx, "moby-dick-7", vectorstoretest.Model, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "passage 5", hits[0].Text)
}

func TestStore_OneDirectoryPerSlug(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.InsertBatch(ctx, "dune-2", vectorstoretest.Model, vectorstoretest.Passages("dune-2", 0, 1)))
	assert.FileExists(t, filepath.Join(s.Root(), "dune-2", indexFile))

	require.NoError(t, s.Remove(ctx, "dune-2"))
	assert.NoDirExists(t, filepath.Join(s.Root(), "dune-2"))
}

func TestStore_QueryDoesNotCreateFiles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), "ghost-1", vectorstoretest.Model, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(s.Root(), "ghost-1"))
}

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0.25, -1.5, 3.0e-7}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
}
