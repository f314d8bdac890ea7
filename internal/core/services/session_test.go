package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// sessionBackends returns the relational stores the guard runs on.
func sessionBackends(t *testing.T) map[string]func(t *testing.T) (driven.BookStore, driven.SessionStore) {
	t.Helper()
	return map[string]func(t *testing.T) (driven.BookStore, driven.SessionStore){
		"memory": func(*testing.T) (driven.BookStore, driven.SessionStore) {
			return memory.NewBookStore(), memory.NewSessionStore()
		},
		"sqlite": func(t *testing.T) (driven.BookStore, driven.SessionStore) {
			store, err := sqlite.NewStore(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store.BookStore(), store.SessionStore()
		},
	}
}

func seedBook(t *testing.T, books driven.BookStore) *domain.Book {
	t.Helper()
	book := &domain.Book{
		Author:     "Herman Melville",
		Title:      "Moby Dick",
		Rating:     4.5,
		ContentURL: "file:///moby.txt",
	}
	require.NoError(t, books.CreateBook(context.Background(), book))
	book.Slug = domain.BookSlug(book.Title, book.ID)
	require.NoError(t, books.UpdateBook(context.Background(), book))
	return book
}

func TestSessionGuard_CreateSession(t *testing.T) {
	books := memory.NewBookStore()
	guard := NewSessionGuard(books, memory.NewSessionStore())
	book := seedBook(t, books)

	session, err := guard.CreateSession(context.Background(), 42, book.ID)
	require.NoError(t, err)
	assert.NotZero(t, session.ID)
	assert.Equal(t, int64(42), session.UserID)
	assert.Equal(t, book.ID, session.BookID)

	_, err = guard.CreateSession(context.Background(), 42, 999)
	require.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestSessionGuard_Authorize(t *testing.T) {
	books := memory.NewBookStore()
	guard := NewSessionGuard(books, memory.NewSessionStore())
	book := seedBook(t, books)
	ctx := context.Background()

	session, err := guard.CreateSession(ctx, 1, book.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		userID    int64
		sessionID int64
		want      domain.Access
		wantErr   error
	}{
		{"owner", 1, session.ID, domain.AccessAllowed, nil},
		{"other user", 2, session.ID, domain.AccessForbidden, domain.ErrForbidden},
		{"missing session", 1, session.ID + 100, domain.AccessNotFound, domain.ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Authorize(ctx, tt.userID, tt.sessionID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.wantErr == nil {
				assert.NoError(t, got.Err())
			} else {
				assert.ErrorIs(t, got.Err(), tt.wantErr)
			}
		})
	}
}

func TestSessionGuard_RecordExchangeOrder(t *testing.T) {
	books := memory.NewBookStore()
	guard := NewSessionGuard(books, memory.NewSessionStore())
	book := seedBook(t, books)
	ctx := context.Background()

	session, err := guard.CreateSession(ctx, 1, book.ID)
	require.NoError(t, err)

	require.NoError(t, guard.RecordExchange(ctx, session.ID, "q1", "a1"))
	require.NoError(t, guard.RecordExchange(ctx, session.ID, "q2", "a2"))

	msgs, err := guard.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	want := []struct {
		sender  domain.Sender
		content string
	}{
		{domain.SenderUser, "q1"},
		{domain.SenderAssistant, "a1"},
		{domain.SenderUser, "q2"},
		{domain.SenderAssistant, "a2"},
	}
	for i, w := range want {
		assert.Equal(t, w.sender, msgs[i].Sender)
		assert.Equal(t, w.content, msgs[i].Content)
		if i > 0 {
			assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
		}
	}

	err = guard.RecordExchange(ctx, 999, "q", "a")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionGuard_ListSessions(t *testing.T) {
	books := memory.NewBookStore()
	guard := NewSessionGuard(books, memory.NewSessionStore())
	book := seedBook(t, books)
	ctx := context.Background()

	first, err := guard.CreateSession(ctx, 1, book.ID)
	require.NoError(t, err)
	second, err := guard.CreateSession(ctx, 1, book.ID)
	require.NoError(t, err)
	_, err = guard.CreateSession(ctx, 2, book.ID)
	require.NoError(t, err)

	sessions, err := guard.ListSessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestSessionGuard_BindingSurvivesExchanges(t *testing.T) {
	for name, open := range sessionBackends(t) {
		t.Run(name, func(t *testing.T) {
			books, sessions := open(t)
			guard := NewSessionGuard(books, sessions)
			ctx := context.Background()
			book := seedBook(t, books)
			other := seedBook(t, books)

			session, err := guard.CreateSession(ctx, 7, book.ID)
			require.NoError(t, err)

			for _, q := range []string{"Who is Ishmael?", "Who is Ahab?", "What is the whale called?"} {
				require.NoError(t, guard.RecordExchange(ctx, session.ID, q, "An answer."))
			}
			_, err = guard.CreateSession(ctx, 7, other.ID)
			require.NoError(t, err)

			got, err := guard.Session(ctx, 7, session.ID)
			require.NoError(t, err)
			assert.Equal(t, book.ID, got.BookID)
			assert.Equal(t, int64(7), got.UserID)
		})
	}
}

func TestSessionGuard_RecordExchangeMissingSession(t *testing.T) {
	for name, open := range sessionBackends(t) {
		t.Run(name, func(t *testing.T) {
			books, sessions := open(t)
			guard := NewSessionGuard(books, sessions)

			err := guard.RecordExchange(context.Background(), 404, "Hello?", "Nobody here.")
			require.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}
