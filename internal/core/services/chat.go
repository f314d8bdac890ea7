package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService runs question/answer exchanges inside sessions.
type ChatService struct {
	guard    *SessionGuard
	books    driven.BookStore
	answerer driving.Answerer
}

// NewChatService creates a chat service.
func NewChatService(guard *SessionGuard, books driven.BookStore, answerer driving.Answerer) *ChatService {
	return &ChatService{guard: guard, books: books, answerer: answerer}
}

// Ask streams the answer to question through emit and records the exchange
// once the stream has ended normally. Nothing is recorded when the provider
// fails, emit fails, or ctx is cancelled before the end.
func (c *ChatService) Ask(
	ctx context.Context,
	userID, sessionID int64,
	question string,
	emit func(fragment string) error,
) (string, error) {
	session, err := c.guard.Session(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}

	book, err := c.books.GetBook(ctx, session.BookID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: %d", domain.ErrBookNotFound, session.BookID)
		}
		return "", fmt.Errorf("get book: %w", err)
	}
	if book.Slug == "" {
		return "", fmt.Errorf("%w: book %d has no index", domain.ErrBookNotFound, book.ID)
	}

	stream, err := c.answerer.Answer(ctx, question, book.Slug)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("Answer for session %d aborted: %v", sessionID, err)
			return "", err
		}
		answer.WriteString(frag)
		if err := emit(frag); err != nil {
			return "", fmt.Errorf("emit fragment: %w", err)
		}
	}

	// The answer is complete; a client hanging up now must not lose it.
	if err := c.guard.RecordExchange(context.WithoutCancel(ctx), sessionID, question, answer.String()); err != nil {
		return "", err
	}
	return answer.String(), nil
}
