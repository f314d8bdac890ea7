package driving

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// BookUpdate carries the mutable fields of a book. Nil fields are left unchanged.
type BookUpdate struct {
	Author      *string
	Title       *string
	Rating      *float64
	Description *string
}

// BookService manages the catalogue and keeps vector indexes in step with it.
type BookService interface {
	// Create persists a book, assigns its slug and submits an ingestion job.
	// When submission fails the persisted book is still returned with the error.
	Create(ctx context.Context, book domain.Book) (*domain.Book, string, error)

	// Update changes mutable fields. The slug never changes.
	Update(ctx context.Context, id int64, update BookUpdate) (*domain.Book, error)

	// Delete removes the book and submits removal of its index.
	Delete(ctx context.Context, id int64) error

	Get(ctx context.Context, id int64) (*domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
	FindByTitle(ctx context.Context, query string) ([]domain.Book, error)
}
