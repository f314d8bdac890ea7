package driven

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// BookStore persists the book catalogue.
type BookStore interface {
	// CreateBook inserts a book and sets its ID.
	CreateBook(ctx context.Context, book *domain.Book) error

	// UpdateBook overwrites the mutable fields of an existing book.
	// The slug is only written when the stored slug is empty.
	UpdateBook(ctx context.Context, book *domain.Book) error

	// GetBook retrieves a book by ID. Returns domain.ErrNotFound if absent.
	GetBook(ctx context.Context, id int64) (*domain.Book, error)

	// FindBooksByTitle returns books whose title contains the query, case-insensitively.
	FindBooksByTitle(ctx context.Context, query string) ([]domain.Book, error)

	// ListBooks returns all books ordered by ID.
	ListBooks(ctx context.Context) ([]domain.Book, error)

	// DeleteBook removes a book. Returns domain.ErrNotFound if absent.
	DeleteBook(ctx context.Context, id int64) error
}

// SessionStore persists chat sessions and their message logs.
type SessionStore interface {
	// CreateSession inserts a session and sets its ID.
	CreateSession(ctx context.Context, session *domain.ChatSession) error

	// GetSession retrieves a session by ID. Returns domain.ErrNotFound if absent.
	GetSession(ctx context.Context, id int64) (*domain.ChatSession, error)

	// ListSessions returns a user's sessions, newest first.
	ListSessions(ctx context.Context, userID int64) ([]domain.ChatSession, error)

	// AppendMessages atomically appends messages in the given order.
	// Either all messages are stored or none are.
	AppendMessages(ctx context.Context, sessionID int64, messages []domain.ChatMessage) error

	// ListMessages returns a session's messages in creation order.
	ListMessages(ctx context.Context, sessionID int64) ([]domain.ChatMessage, error)

	// Close releases resources.
	Close() error
}
