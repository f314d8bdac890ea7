package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore/vectorstoretest"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

func TestTableName(t *testing.T) {
	a := TableName("moby-dick-7")
	assert.Regexp(t, `^passages_[0-9a-f]{16}$`, a)
	assert.Equal(t, a, TableName("moby-dick-7"))
	assert.NotEqual(t, a, TableName("moby-dick-8"))
	assert.LessOrEqual(t, len(TableName("a-very-long-slug-that-would-not-fit-in-a-postgres-identifier-12345")), 63)
}

// TestStore_Conformance runs against a live database when BOOKCHAT_TEST_PG_DSN is set.
func TestStore_Conformance(t *testing.T) {
	dsn := os.Getenv("BOOKCHAT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("BOOKCHAT_TEST_PG_DSN not set")
	}

	vectorstoretest.Run(t, func(t *testing.T) driven.VectorStore {
		ctx := context.Background()
		s, err := New(ctx, dsn)
		require.NoError(t, err)
		for _, slug := range []string{"nothing-1", "moby-dick-7", "dune-2", "emma-3", "ghost-9"} {
			require.NoError(t, s.Remove(ctx, slug))
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
