package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

func TestSessionStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	book := createTestBook(t, store, "Moby Dick")

	session := &domain.ChatSession{UserID: 1, BookID: book.ID}
	require.NoError(t, store.SessionStore().CreateSession(ctx, session))
	assert.Positive(t, session.ID)

	got, err := store.SessionStore().GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, book.ID, got.BookID)
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.SessionStore().GetSession(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_CreateRequiresBook(t *testing.T) {
	store := setupTestStore(t)

	err := store.SessionStore().CreateSession(context.Background(), &domain.ChatSession{UserID: 1, BookID: 999})
	assert.Error(t, err)
}

func TestSessionStore_ListSessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	book := createTestBook(t, store, "Moby Dick")
	sessions := store.SessionStore()

	for _, user := range []int64{1, 2, 1} {
		require.NoError(t, sessions.CreateSession(ctx, &domain.ChatSession{UserID: user, BookID: book.ID}))
	}

	mine, err := sessions.ListSessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Greater(t, mine[0].ID, mine[1].ID)
}

func TestSessionStore_MessagesInCreationOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	book := createTestBook(t, store, "Moby Dick")
	sessions := store.SessionStore()

	session := &domain.ChatSession{UserID: 1, BookID: book.ID}
	require.NoError(t, sessions.CreateSession(ctx, session))

	require.NoError(t, sessions.AppendMessages(ctx, session.ID, []domain.ChatMessage{
		{Sender: domain.SenderUser, Content: "What is the ship's name?"},
		{Sender: domain.SenderAssistant, Content: "The Pequod."},
	}))
	require.NoError(t, sessions.AppendMessages(ctx, session.ID, []domain.ChatMessage{
		{Sender: domain.SenderUser, Content: "Who is the captain?"},
		{Sender: domain.SenderAssistant, Content: "Ahab."},
	}))

	msgs, err := sessions.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}
	assert.Equal(t, domain.SenderUser, msgs[2].Sender)
	assert.Equal(t, "Who is the captain?", msgs[2].Content)
	assert.Equal(t, domain.SenderAssistant, msgs[3].Sender)
	assert.Equal(t, "Ahab.", msgs[3].Content)
}

func TestSessionStore_AppendIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	book := createTestBook(t, store, "Moby Dick")
	sessions := store.SessionStore()

	session := &domain.ChatSession{UserID: 1, BookID: book.ID}
	require.NoError(t, sessions.CreateSession(ctx, session))

	// The second message violates the sender CHECK constraint.
	err := sessions.AppendMessages(ctx, session.ID, []domain.ChatMessage{
		{Sender: domain.SenderUser, Content: "question"},
		{Sender: domain.Sender("system"), Content: "bad"},
	})
	require.Error(t, err)

	msgs, err := sessions.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSessionStore_AppendToMissingSession(t *testing.T) {
	store := setupTestStore(t)

	err := store.SessionStore().AppendMessages(context.Background(), 404, []domain.ChatMessage{
		{Sender: domain.SenderUser, Content: "anyone there?"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_DeletingBookCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	book := createTestBook(t, store, "Moby Dick")

	session := &domain.ChatSession{UserID: 1, BookID: book.ID}
	require.NoError(t, store.SessionStore().CreateSession(ctx, session))
	require.NoError(t, store.BookStore().DeleteBook(ctx, book.ID))

	_, err := store.SessionStore().GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
