package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
)

// Ensure SessionGuard implements the interface.
var _ driving.SessionService = (*SessionGuard)(nil)

// SessionGuard owns chat sessions and decides who may use them.
type SessionGuard struct {
	books    driven.BookStore
	sessions driven.SessionStore
	now      func() time.Time
}

// NewSessionGuard creates a session guard.
func NewSessionGuard(books driven.BookStore, sessions driven.SessionStore) *SessionGuard {
	return &SessionGuard{books: books, sessions: sessions, now: time.Now}
}

// CreateSession binds a new session for userID to bookID.
func (g *SessionGuard) CreateSession(ctx context.Context, userID, bookID int64) (*domain.ChatSession, error) {
	if _, err := g.books.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", domain.ErrBookNotFound, bookID)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	session := &domain.ChatSession{
		UserID:    userID,
		BookID:    bookID,
		CreatedAt: g.now().UTC(),
	}
	if err := g.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Authorize reports whether userID may use sessionID.
// The error is only set for storage failures.
func (g *SessionGuard) Authorize(ctx context.Context, userID, sessionID int64) (domain.Access, error) {
	session, err := g.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AccessNotFound, nil
		}
		return domain.AccessForbidden, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return domain.AccessForbidden, nil
	}
	return domain.AccessAllowed, nil
}

// RecordExchange appends the question and the answer as one unit.
func (g *SessionGuard) RecordExchange(ctx context.Context, sessionID int64, question, answer string) error {
	now := g.now().UTC()
	err := g.sessions.AppendMessages(ctx, sessionID, []domain.ChatMessage{
		{SessionID: sessionID, Sender: domain.SenderUser, Content: question, CreatedAt: now},
		{SessionID: sessionID, Sender: domain.SenderAssistant, Content: answer, CreatedAt: now},
	})
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %d", domain.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// ListMessages returns the session's messages in creation order.
func (g *SessionGuard) ListMessages(ctx context.Context, sessionID int64) ([]domain.ChatMessage, error) {
	messages, err := g.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ListSessions returns userID's sessions, newest first.
func (g *SessionGuard) ListSessions(ctx context.Context, userID int64) ([]domain.ChatSession, error) {
	sessions, err := g.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Session returns the session after checking userID may use it.
func (g *SessionGuard) Session(ctx context.Context, userID, sessionID int64) (*domain.ChatSession, error) {
	access, err := g.Authorize(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := access.Err(); err != nil {
		return nil, err
	}
	return g.sessions.GetSession(ctx, sessionID)
}
