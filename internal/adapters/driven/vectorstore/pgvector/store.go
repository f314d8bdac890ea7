// Package pgvector provides a Postgres vector index with one table per slug.
//
// A registry table (bookchat_indexes) maps each slug to its passage table and
// records the embedding model and dimension the table was created with.
// Passage tables are named from a hash of the slug so any valid slug fits
// Postgres' identifier limit.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

const registryDDL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS bookchat_indexes (
    slug       TEXT PRIMARY KEY,
    table_name TEXT NOT NULL,
    model      TEXT NOT NULL,
    dimension  INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a driven.VectorStore backed by Postgres and the pgvector extension.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and ensures the registry table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting: %w", domain.ErrIndexUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrIndexUnavailable, err)
	}
	if _, err := pool.Exec(ctx, registryDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: creating registry: %w", domain.ErrIndexUnavailable, err)
	}
	return &Store{pool: pool}, nil
}

// TableName returns the passage table for slug.
func TableName(slug string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(slug))
	return fmt.Sprintf("passages_%016x", h.Sum64())
}

func ident(slug string) string {
	return pgx.Identifier{TableName(slug)}.Sanitize()
}

// space returns the registered embedding space for slug, if any.
func (s *Store) space(ctx context.Context, q pgxQuerier, slug string) (vectorstore.Space, bool, error) {
	var space vectorstore.Space
	err := q.QueryRow(ctx, `SELECT model, dimension FROM bookchat_indexes WHERE slug = $1`, slug).
		Scan(&space.Model, &space.Dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return vectorstore.Space{}, false, nil
	}
	if err != nil {
		return vectorstore.Space{}, false, fmt.Errorf("%w: reading registry: %w", domain.ErrIndexUnavailable, err)
	}
	return space, true, nil
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Exists reports whether the slug is registered and its table has rows.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	n, err := s.Count(ctx, slug)
	return n > 0, err
}

// InsertBatch creates the slug's table on first use and appends passages in one transaction.
func (s *Store) InsertBatch(ctx context.Context, slug, model string, passages []domain.Passage) error {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return err
	}
	dim, err := vectorstore.ValidateBatch(passages)
	if err != nil || dim == 0 {
		return err
	}
	incoming := vectorstore.Space{Model: model, Dimension: dim}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Serialise first-batch creation for the same slug.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slug); err != nil {
		return fmt.Errorf("%w: locking slug: %w", domain.ErrIndexUnavailable, err)
	}

	stored, found, err := s.space(ctx, tx, slug)
	if err != nil {
		return err
	}
	if found {
		if err := stored.Check(incoming); err != nil {
			return err
		}
	} else {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id       TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			content  TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, ident(slug), dim)
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("%w: creating table: %w", domain.ErrIndexUnavailable, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO bookchat_indexes (slug, table_name, model, dimension) VALUES ($1, $2, $3, $4)`,
			slug, TableName(slug), model, dim); err != nil {
			return fmt.Errorf("%w: registering index: %w", domain.ErrIndexUnavailable, err)
		}
	}

	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`INSERT INTO %s (id, position, content, embedding) VALUES ($1, $2, $3, $4)`, ident(slug))
	for _, p := range passages {
		batch.Queue(insert, p.ID, p.Position, p.Text, pgv.NewVector(p.Embedding))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: inserting passages: %w", domain.ErrIndexUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing batch: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query orders the slug's passages by cosine distance to vector.
func (s *Store) Query(ctx context.Context, slug, model string, vector []float32, k int) ([]domain.ScoredPassage, error) {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return nil, err
	}
	stored, found, err := s.space(ctx, s.pool, slug)
	if err != nil {
		return nil, err
	}
	if !found || k <= 0 {
		return []domain.ScoredPassage{}, nil
	}
	if err := stored.Check(vectorstore.Space{Model: model, Dimension: len(vector)}); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT position, content, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, position
		LIMIT $2
	`, ident(slug))
	rows, err := s.pool.Query(ctx, query, pgv.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("%w: querying passages: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	hits := []domain.ScoredPassage{}
	for rows.Next() {
		var hit domain.ScoredPassage
		if err := rows.Scan(&hit.Position, &hit.Text, &hit.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning passage: %w", domain.ErrIndexUnavailable, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating passages: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

// Count returns the number of passages stored for the slug.
func (s *Store) Count(ctx context.Context, slug string) (int, error) {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return 0, err
	}
	_, found, err := s.space(ctx, s.pool, slug)
	if err != nil || !found {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ident(slug))).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting passages: %w", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Remove drops the slug's table and registry row.
func (s *Store) Remove(ctx context.Context, slug string) error {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, ident(slug))); err != nil {
		return fmt.Errorf("%w: dropping table: %w", domain.ErrIndexUnavailable, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bookchat_indexes WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("%w: unregistering index: %w", domain.ErrIndexUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing removal: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
