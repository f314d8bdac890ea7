package driving

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// AnswerStream is a cancellable, ordered sequence of answer fragments.
type AnswerStream interface {
	// Recv returns the next fragment, or io.EOF when the answer is complete.
	// Provider failures are wrapped in domain.ErrProviderFailure.
	Recv() (string, error)

	// Close releases the underlying model connection.
	Close() error
}

// Answerer answers questions grounded in one book's passages.
type Answerer interface {
	Answer(ctx context.Context, question, slug string) (AnswerStream, error)
}

// ChatService runs a full question/answer exchange inside a session.
type ChatService interface {
	// Ask authorises the user, streams the answer through emit in order, and
	// records the exchange only once the answer has been fully produced.
	// A non-nil error from emit aborts the exchange without recording it.
	Ask(ctx context.Context, userID, sessionID int64, question string, emit func(fragment string) error) (string, error)
}

// SessionService manages chat sessions and their access rules.
type SessionService interface {
	CreateSession(ctx context.Context, userID, bookID int64) (*domain.ChatSession, error)
	Authorize(ctx context.Context, userID, sessionID int64) (domain.Access, error)
	RecordExchange(ctx context.Context, sessionID int64, question, answer string) error
	ListMessages(ctx context.Context, sessionID int64) ([]domain.ChatMessage, error)
	ListSessions(ctx context.Context, userID int64) ([]domain.ChatSession, error)
}
