package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/bookchat/internal/core/domain"
)

type chatFixture struct {
	chat    *ChatService
	guard   *SessionGuard
	llm     *scriptedLLM
	session *domain.ChatSession
}

func newChatFixture(t *testing.T, llm *scriptedLLM) *chatFixture {
	t.Helper()
	books := memory.NewBookStore()
	guard := NewSessionGuard(books, memory.NewSessionStore())
	book := seedBook(t, books)

	embedder := &letterEmbedder{}
	vectors := vectormemory.New()
	p := NewIngestionPipeline(newMapLoader(map[string]string{book.ContentURL: mobyText}),
		paragraphSplitter{}, embedder, vectors, 0)
	_, err := p.Ingest(context.Background(), book.ContentURL, book.Slug)
	require.NoError(t, err)

	answerer := NewAnswerer(embedder, vectors, llm, testPrompts(), nil, AnswererConfig{TopK: 3})
	session, err := guard.CreateSession(context.Background(), 7, book.ID)
	require.NoError(t, err)

	return &chatFixture{
		chat:    NewChatService(guard, books, answerer),
		guard:   guard,
		llm:     llm,
		session: session,
	}
}

func TestAsk_StreamsThenRecords(t *testing.T) {
	f := newChatFixture(t, &scriptedLLM{reply: "Ishmael tells the story."})
	ctx := context.Background()

	var frags []string
	answer, err := f.chat.Ask(ctx, 7, f.session.ID, "Who narrates?", func(frag string) error {
		// Nothing is persisted while the answer is still streaming.
		msgs, err := f.guard.ListMessages(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		frags = append(frags, frag)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Ishmael tells the story.", answer)
	assert.Equal(t, []string{"Ishmael", " tells", " the", " story."}, frags)

	msgs, err := f.guard.ListMessages(ctx, f.session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Who narrates?", msgs[0].Content)
	assert.Equal(t, domain.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, answer, msgs[1].Content)
	assert.Equal(t, 1, f.llm.Closed())
}

func TestAsk_AccessDenied(t *testing.T) {
	f := newChatFixture(t, &scriptedLLM{reply: "x"})
	ctx := context.Background()
	emit := func(string) error { return nil }

	_, err := f.chat.Ask(ctx, 8, f.session.ID, "q", emit)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.chat.Ask(ctx, 7, f.session.ID+50, "q", emit)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAsk_FailureRecordsNothing(t *testing.T) {
	tests := []struct {
		name    string
		llm     *scriptedLLM
		emitErr error
		wantErr error
	}{
		{"provider fails mid stream", &scriptedLLM{reply: "a b c d", failAfter: 2}, nil, domain.ErrProviderFailure},
		{"client goes away", &scriptedLLM{reply: "a b c d"}, errors.New("broken pipe"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, tt.llm)
			ctx := context.Background()
			emitted := 0

			_, err := f.chat.Ask(ctx, 7, f.session.ID, "q", func(string) error {
				emitted++
				return tt.emitErr
			})
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.emitErr != nil {
				require.ErrorIs(t, err, tt.emitErr)
				assert.Equal(t, 1, emitted)
			}

			msgs, err := f.guard.ListMessages(ctx, f.session.ID)
			require.NoError(t, err)
			assert.Empty(t, msgs)
			assert.Equal(t, 1, tt.llm.Closed())
		})
	}
}

func TestAsk_UnindexedBookRecordsSentinel(t *testing.T) {
	books := memory.NewBookStore()
	guard := NewSessionGuard(books, memory.NewSessionStore())
	book := seedBook(t, books)
	answerer := NewAnswerer(&letterEmbedder{}, vectormemory.New(), &scriptedLLM{reply: "unused"},
		testPrompts(), nil, AnswererConfig{})
	chat := NewChatService(guard, books, answerer)
	ctx := context.Background()

	session, err := guard.CreateSession(ctx, 3, book.ID)
	require.NoError(t, err)

	answer, err := chat.Ask(ctx, 3, session.ID, "What is the ship called?", func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, domain.SentinelAnswer, answer)

	msgs, err := guard.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SentinelAnswer, msgs[1].Content)
}

func TestAsk_CancelledAfterDrainStillRecords(t *testing.T) {
	f := newChatFixture(t, &scriptedLLM{reply: "done"})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.chat.Ask(ctx, 7, f.session.ID, "q", func(string) error {
		cancel()
		return nil
	})
	require.NoError(t, err)

	msgs, err := f.guard.ListMessages(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
