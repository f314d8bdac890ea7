package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// --- Test doubles shared by the service tests ---

// letterEmbedder maps text to a letter histogram so similar texts score higher.
type letterEmbedder struct {
	mu      sync.Mutex
	calls   int
	err     error
	failOn  int
	block   chan struct{}
	entered chan struct{}
}

func (e *letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e *letterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	if e.failOn > 0 && e.calls == e.failOn {
		err = errors.New("embedding backend dropped the connection")
	}
	e.mu.Unlock()

	if e.entered != nil {
		select {
		case e.entered <- struct{}{}:
		default:
		}
	}
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *letterEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *letterEmbedder) Dimensions() int { return 27 }
func (e *letterEmbedder) ModelName() string { return "letters" }
func (e *letterEmbedder) Ping(_ context.Context) error { return nil }
func (e *letterEmbedder) Close() error { return nil }

// mapLoader serves documents from memory keyed by URL.
type mapLoader struct {
	mu    sync.Mutex
	docs  map[string]string
	loads int
}

func newMapLoader(docs map[string]string) *mapLoader {
	return &mapLoader{docs: docs}
}

func (l *mapLoader) Stat(_ context.Context, contentURL string) error {
	if _, ok := l.docs[contentURL]; !ok {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (l *mapLoader) Load(_ context.Context, contentURL string) (*domain.Document, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()
	content, ok := l.docs[contentURL]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	return &domain.Document{Title: contentURL, Content: content}, nil
}

func (l *mapLoader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// paragraphSplitter splits on blank lines.
type paragraphSplitter struct{}

func (paragraphSplitter) Split(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mapPrompts serves fixed templates.
type mapPrompts map[string]string

func testPrompts() mapPrompts {
	return mapPrompts{
		driven.PromptAnswerSystem: "Answer from the context only, or say: " + domain.SentinelAnswer,
		driven.PromptAnswerHuman:  "CONTEXT:\n{context}\n\nQUESTION:\n{question}",
	}
}

func (p mapPrompts) Load(name string) (string, error) {
	if s, ok := p[name]; ok {
		return s, nil
	}
	return "", errors.New("unknown prompt")
}

func (p mapPrompts) Reload() {}

// wordCounter counts whitespace separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

// scriptedLLM streams its reply word by word. With no "[1]" citation in the
// prompt it answers with the sentinel.
type scriptedLLM struct {
	reply     string
	failAfter int
	startErr  error

	mu       sync.Mutex
	messages []driven.ChatMessage
	opts     driven.GenerateOptions
	closed   int
}

func (l *scriptedLLM) GenerateStream(
	_ context.Context,
	messages []driven.ChatMessage,
	opts driven.GenerateOptions,
) (driven.TokenStream, error) {
	if l.startErr != nil {
		return nil, l.startErr
	}
	l.mu.Lock()
	l.messages = messages
	l.opts = opts
	l.mu.Unlock()

	reply := l.reply
	if !strings.Contains(messages[len(messages)-1].Content, "[1]") {
		reply = domain.SentinelAnswer
	}
	var frags []string
	for i, w := range strings.Fields(reply) {
		if i > 0 {
			w = " " + w
		}
		frags = append(frags, w)
	}
	return &sliceStream{llm: l, frags: frags, failAfter: l.failAfter}, nil
}

func (l *scriptedLLM) Prompt() []driven.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.messages
}

func (l *scriptedLLM) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *scriptedLLM) ModelName() string { return "scripted" }
func (l *scriptedLLM) Ping(_ context.Context) error { return nil }
func (l *scriptedLLM) Close() error { return nil }

type sliceStream struct {
	llm       *scriptedLLM
	frags     []string
	sent      int
	failAfter int
}

func (s *sliceStream) Recv() (string, error) {
	if s.failAfter > 0 && s.sent == s.failAfter {
		return "", io.ErrUnexpectedEOF
	}
	if s.sent >= len(s.frags) {
		return "", io.EOF
	}
	f := s.frags[s.sent]
	s.sent++
	return f, nil
}

func (s *sliceStream) Close() error {
	s.llm.mu.Lock()
	s.llm.closed++
	s.llm.mu.Unlock()
	return nil
}

// recordingQueue keeps enqueued jobs instead of running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []domain.IngestionJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job domain.IngestionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Run(ctx context.Context, _ driven.JobHandler) error {
	<-ctx.Done()
	return nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) Jobs() []domain.IngestionJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.IngestionJob(nil), q.jobs...)
}
