// Package memory provides in-memory implementations of the catalogue and session stores.
// They are used by tests and by `bookchat ask` when no data directory is wanted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// Ensure BookStore implements the interface.
var _ driven.BookStore = (*BookStore)(nil)

// BookStore is an in-memory implementation of driven.BookStore.
type BookStore struct {
	mu     sync.RWMutex
	nextID int64
	books  map[int64]domain.Book
}

// NewBookStore creates a new in-memory book store.
func NewBookStore() *BookStore {
	return &BookStore{
		books: make(map[int64]domain.Book),
	}
}

// CreateBook stores a book and assigns the next ID.
func (s *BookStore) CreateBook(_ context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	book.ID = s.nextID
	book.CreatedAt = now
	book.UpdatedAt = now
	s.books[book.ID] = *book
	return nil
}

// UpdateBook overwrites a stored book, keeping an already assigned slug.
func (s *BookStore) UpdateBook(_ context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.books[book.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if existing.Slug != "" {
		book.Slug = existing.Slug
	}
	book.CreatedAt = existing.CreatedAt
	book.UpdatedAt = time.Now().UTC()
	s.books[book.ID] = *book
	return nil
}

// GetBook retrieves a book by ID.
func (s *BookStore) GetBook(_ context.Context, id int64) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &book, nil
}

// FindBooksByTitle returns books whose title contains query, case-insensitively.
func (s *BookStore) FindBooksByTitle(_ context.Context, query string) ([]domain.Book, error) {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Book
	for _, book := range s.books {
		if strings.Contains(strings.ToLower(book.Title), q) {
			result = append(result, book)
		}
	}
	sortBooks(result)
	return result, nil
}

// ListBooks returns all books ordered by ID.
func (s *BookStore) ListBooks(_ context.Context) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Book, 0, len(s.books))
	for _, book := range s.books {
		result = append(result, book)
	}
	sortBooks(result)
	return result, nil
}

// DeleteBook removes a book.
func (s *BookStore) DeleteBook(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func sortBooks(books []domain.Book) {
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
}
