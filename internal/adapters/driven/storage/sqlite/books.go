package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// bookStore implements driven.BookStore.
type bookStore struct {
	store *Store
}

var _ driven.BookStore = (*bookStore)(nil)

const bookColumns = `id, author, title, rating, description, content_url, slug, created_at, updated_at`

// CreateBook inserts a book and sets its ID.
func (s *bookStore) CreateBook(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO books (author, title, rating, description, content_url, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, book.Author, book.Title, book.Rating, book.Description, book.ContentURL,
		nullString(book.Slug), book.CreatedAt, book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading book id: %w", err)
	}
	book.ID = id
	return nil
}

// UpdateBook overwrites mutable fields. An already assigned slug is never replaced.
func (s *bookStore) UpdateBook(ctx context.Context, book *domain.Book) error {
	book.UpdatedAt = time.Now().UTC()

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE books SET
			author = ?,
			title = ?,
			rating = ?,
			description = ?,
			content_url = ?,
			slug = COALESCE(slug, ?),
			updated_at = ?
		WHERE id = ?
	`, book.Author, book.Title, book.Rating, book.Description, book.ContentURL,
		nullString(book.Slug), book.UpdatedAt, book.ID)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *bookStore) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning book: %w", err)
	}
	return book, nil
}

// FindBooksByTitle returns books whose title contains query.
// SQLite LIKE is case-insensitive for ASCII.
func (s *bookStore) FindBooksByTitle(ctx context.Context, query string) ([]domain.Book, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE title LIKE '%' || ? || '%'
		ORDER BY id
	`, query)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// ListBooks returns all books ordered by ID.
func (s *bookStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// DeleteBook removes a book. Sessions and messages cascade.
func (s *bookStore) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var book domain.Book
	var slug sql.NullString
	if err := row.Scan(&book.ID, &book.Author, &book.Title, &book.Rating, &book.Description,
		&book.ContentURL, &slug, &book.CreatedAt, &book.UpdatedAt); err != nil {
		return nil, err
	}
	book.Slug = slug.String
	return &book, nil
}

func scanBooks(rows *sql.Rows) ([]domain.Book, error) {
	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}
	return books, nil
}
