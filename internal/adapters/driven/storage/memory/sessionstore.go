package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu            sync.RWMutex
	nextSessionID int64
	nextMessageID int64
	sessions      map[int64]domain.ChatSession
	messages      map[int64][]domain.ChatMessage
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]domain.ChatSession),
		messages: make(map[int64][]domain.ChatMessage),
	}
}

// CreateSession stores a session and assigns the next ID.
func (s *SessionStore) CreateSession(_ context.Context, session *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSessionID++
	session.ID = s.nextSessionID
	session.CreatedAt = time.Now().UTC()
	s.sessions[session.ID] = *session
	return nil
}

// GetSession retrieves a session by ID.
func (s *SessionStore) GetSession(_ context.Context, id int64) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

// ListSessions returns a user's sessions, newest first.
func (s *SessionStore) ListSessions(_ context.Context, userID int64) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.ChatSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// AppendMessages appends messages under a single lock.
func (s *SessionStore) AppendMessages(_ context.Context, sessionID int64, messages []domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	for _, msg := range messages {
		s.nextMessageID++
		msg.ID = s.nextMessageID
		msg.SessionID = sessionID
		msg.CreatedAt = now
		s.messages[sessionID] = append(s.messages[sessionID], msg)
	}
	return nil
}

// ListMessages returns a copy of a session's messages in creation order.
func (s *SessionStore) ListMessages(_ context.Context, sessionID int64) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	result := make([]domain.ChatMessage, len(msgs))
	copy(result, msgs)
	return result, nil
}

// Close is a no-op.
func (s *SessionStore) Close() error {
	return nil
}
