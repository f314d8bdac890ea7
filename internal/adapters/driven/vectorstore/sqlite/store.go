// Package sqlite provides a persistent vector index with one SQLite file per slug.
//
// Each slug owns the directory <root>/<slug>/ holding index.db. Handles are
// opened lazily on first use and cached until Remove or Close. Another
// process (a worker, or the ingest CLI) may delete and rebuild a slug's file,
// so every use compares the cached handle's file with the one on disk and
// reopens when they differ. Similarity is
// computed by brute-force cosine over the stored vectors, which is adequate
// for a single book's passages.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

const indexFile = "index.db"

const schema = `
CREATE TABLE IF NOT EXISTS index_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS passages (
    id        TEXT PRIMARY KEY,
    position  INTEGER NOT NULL,
    content   TEXT NOT NULL,
    embedding BLOB NOT NULL
);
`

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a driven.VectorStore rooted at a directory partitioned by slug.
type Store struct {
	root string

	mu      sync.Mutex
	handles map[string]*handle
}

// handle is an open index together with the file it was opened on.
type handle struct {
	db   *sql.DB
	file os.FileInfo
}

// New creates a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating vector root: %w", domain.ErrIndexUnavailable, err)
	}
	return &Store{
		root:    root,
		handles: make(map[string]*handle),
	}, nil
}

// Root returns the directory partitioned by slug.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) dir(slug string) string {
	return filepath.Join(s.root, slug)
}

// open returns the slug's handle. When create is false and no index file
// exists, it returns nil without touching the filesystem.
func (s *Store) open(slug string, create bool) (*sql.DB, error) {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir(slug), indexFile)
	info, err := os.Stat(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	if h, ok := s.handles[slug]; ok {
		if info != nil && os.SameFile(h.file, info) {
			return h.db, nil
		}
		// Replaced or deleted behind our back.
		h.db.Close()
		delete(s.handles, slug)
	}

	if info == nil {
		if !create {
			return nil, nil
		}
		if err := os.MkdirAll(s.dir(slug), 0700); err != nil {
			return nil, fmt.Errorf("%w: creating index directory: %w", domain.ErrIndexUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening index: %w", domain.ErrIndexUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating index schema: %w", domain.ErrIndexUnavailable, err)
	}
	if info == nil {
		if info, err = os.Stat(path); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
	}

	s.handles[slug] = &handle{db: db, file: info}
	return db, nil
}

// Exists reports whether the slug's index file is present and holds passages.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	n, err := s.Count(ctx, slug)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertBatch appends passages in one transaction, recording the embedding
// space on the first write and enforcing it afterwards.
func (s *Store) InsertBatch(ctx context.Context, slug, model string, passages []domain.Passage) error {
	dim, err := vectorstore.ValidateBatch(passages)
	if err != nil || dim == 0 {
		return err
	}
	db, err := s.open(slug, true)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	incoming := vectorstore.Space{Model: model, Dimension: dim}
	stored, found, err := readSpace(ctx, tx)
	if err != nil {
		return err
	}
	if found {
		if err := stored.Check(incoming); err != nil {
			return err
		}
	} else if err := writeSpace(ctx, tx, incoming); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO passages (id, position, content, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", domain.ErrIndexUnavailable, err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Position, p.Text, float32SliceToBytes(p.Embedding)); err != nil {
			return fmt.Errorf("%w: inserting passage %d: %w", domain.ErrIndexUnavailable, p.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing batch: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query scores every stored passage against vector and returns the best k.
func (s *Store) Query(ctx context.Context, slug, model string, vector []float32, k int) ([]domain.ScoredPassage, error) {
	db, err := s.open(slug, false)
	if err != nil {
		return nil, err
	}
	if db == nil || k <= 0 {
		return []domain.ScoredPassage{}, nil
	}

	stored, found, err := readSpace(ctx, db)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.ScoredPassage{}, nil
	}
	if err := stored.Check(vectorstore.Space{Model: model, Dimension: len(vector)}); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT position, content, embedding FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying passages: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []domain.ScoredPassage
	for rows.Next() {
		var hit domain.ScoredPassage
		var blob []byte
		if err := rows.Scan(&hit.Position, &hit.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning passage: %w", domain.ErrIndexUnavailable, err)
		}
		hit.Score = vectorstore.Cosine(bytesToFloat32Slice(blob), vector)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating passages: %w", domain.ErrIndexUnavailable, err)
	}
	if hits == nil {
		return []domain.ScoredPassage{}, nil
	}
	return vectorstore.Rank(hits, k), nil
}

// Count returns the number of stored passages, zero for a missing index.
func (s *Store) Count(ctx context.Context, slug string) (int, error) {
	db, err := s.open(slug, false)
	if err != nil || db == nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting passages: %w", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Remove closes the slug's handle and deletes its directory.
func (s *Store) Remove(_ context.Context, slug string) error {
	if err := vectorstore.CheckSlug(slug); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[slug]; ok {
		h.db.Close()
		delete(s.handles, slug)
	}
	if err := os.RemoveAll(s.dir(slug)); err != nil {
		return fmt.Errorf("%w: removing index: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Close closes every open handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for slug, h := range s.handles {
		if err := h.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", slug, err))
		}
		delete(s.handles, slug)
	}
	return errors.Join(errs...)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readSpace(ctx context.Context, q querier) (vectorstore.Space, bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM index_meta`)
	if err != nil {
		return vectorstore.Space{}, false, fmt.Errorf("%w: reading index meta: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var space vectorstore.Space
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return vectorstore.Space{}, false, fmt.Errorf("%w: scanning index meta: %w", domain.ErrIndexUnavailable, err)
		}
		switch key {
		case "model":
			space.Model = value
		case "dimension":
			dim, err := strconv.Atoi(value)
			if err != nil {
				return vectorstore.Space{}, false, fmt.Errorf("%w: corrupt dimension %q", domain.ErrIndexUnavailable, value)
			}
			space.Dimension = dim
			found = true
		}
	}
	return space, found, rows.Err()
}

func writeSpace(ctx context.Context, e execer, space vectorstore.Space) error {
	_, err := e.ExecContext(ctx, `INSERT INTO index_meta (key, value) VALUES ('model', ?), ('dimension', ?)`,
		space.Model, strconv.Itoa(space.Dimension))
	if err != nil {
		return fmt.Errorf("%w: writing index meta: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
