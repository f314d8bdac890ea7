package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure CatalogService implements the interface.
var _ driving.BookService = (*CatalogService)(nil)

// CatalogService manages books and submits index jobs as they change.
type CatalogService struct {
	books      driven.BookStore
	dispatcher driving.Dispatcher
	now        func() time.Time
}

// NewCatalogService creates a catalogue service.
func NewCatalogService(books driven.BookStore, dispatcher driving.Dispatcher) *CatalogService {
	return &CatalogService{books: books, dispatcher: dispatcher, now: time.Now}
}

// Create persists book, assigns its slug and submits ingestion.
// The returned string is the job ID.
func (c *CatalogService) Create(ctx context.Context, book domain.Book) (*domain.Book, string, error) {
	if err := book.Validate(); err != nil {
		return nil, "", err
	}
	book.ID = 0
	book.Slug = ""
	now := c.now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	if err := c.books.CreateBook(ctx, &book); err != nil {
		return nil, "", fmt.Errorf("create book: %w", err)
	}

	// The slug embeds the record ID, so it can only be set after the insert.
	book.Slug = domain.BookSlug(book.Title, book.ID)
	if err := c.books.UpdateBook(ctx, &book); err != nil {
		return nil, "", fmt.Errorf("assign slug: %w", err)
	}

	jobID, err := c.dispatcher.Submit(ctx, domain.IngestionJob{
		Kind:       domain.JobIngest,
		ContentURL: book.ContentURL,
		Slug:       book.Slug,
	})
	if err != nil {
		logger.Warn("Book %d saved but ingestion was not queued: %v", book.ID, err)
		return &book, "", err
	}
	logger.Info("Created book %d (%s), ingestion job %s", book.ID, book.Slug, jobID)
	return &book, jobID, nil
}

// Update applies the non-nil fields of update. The slug is left untouched.
func (c *CatalogService) Update(ctx context.Context, id int64, update driving.BookUpdate) (*domain.Book, error) {
	book, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Author != nil {
		book.Author = *update.Author
	}
	if update.Title != nil {
		book.Title = *update.Title
	}
	if update.Rating != nil {
		book.Rating = *update.Rating
	}
	if update.Description != nil {
		book.Description = *update.Description
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}
	book.UpdatedAt = c.now().UTC()

	if err := c.books.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

// Delete removes the book record and submits removal of its index.
// A failed submission leaves an orphaned index but the record stays deleted.
func (c *CatalogService) Delete(ctx context.Context, id int64) error {
	book, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.books.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %d", domain.ErrBookNotFound, id)
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if book.Slug == "" {
		return nil
	}

	if _, err := c.dispatcher.Submit(ctx, domain.IngestionJob{Kind: domain.JobRemove, Slug: book.Slug}); err != nil {
		logger.Warn("Book %d deleted but index %s was not queued for removal: %v", id, book.Slug, err)
		return err
	}
	return nil
}

// Get returns a book by ID.
func (c *CatalogService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := c.books.GetBook(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", domain.ErrBookNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// List returns the whole catalogue.
func (c *CatalogService) List(ctx context.Context) ([]domain.Book, error) {
	books, err := c.books.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// FindByTitle matches books whose title contains query.
func (c *CatalogService) FindByTitle(ctx context.Context, query string) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty title query", domain.ErrInvalidInput)
	}
	books, err := c.books.FindBooksByTitle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	return books, nil
}
