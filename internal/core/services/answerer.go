package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Ensure Answerer implements the interface.
var _ driving.Answerer = (*Answerer)(nil)

// AnswererConfig tunes retrieval and generation.
type AnswererConfig struct {
	// TopK is how many passages are retrieved. Zero uses domain.DefaultTopK.
	TopK int

	// ContextTokens caps the tokens spent on retrieved passages.
	// Zero disables the cap.
	ContextTokens int

	// Temperature and MaxTokens are passed to the language model.
	Temperature float64
	MaxTokens   int
}

// Answerer answers questions from a single book's retrieved passages.
type Answerer struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	llm      driven.LLMService
	prompts  driven.PromptStore
	counter  driven.TokenCounter
	cfg      AnswererConfig
}

// NewAnswerer creates an answerer. counter may be nil when ContextTokens is zero.
func NewAnswerer(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	llm driven.LLMService,
	prompts driven.PromptStore,
	counter driven.TokenCounter,
	cfg AnswererConfig,
) *Answerer {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	return &Answerer{
		embedder: embedder,
		vectors:  vectors,
		llm:      llm,
		prompts:  prompts,
		counter:  counter,
		cfg:      cfg,
	}
}

// Answer retrieves passages for question from slug's index and starts a
// streamed generation constrained to them. An empty index still reaches the
// model, with an empty context section; the system prompt decides the reply.
func (a *Answerer) Answer(ctx context.Context, question, slug string) (driving.AnswerStream, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	messages, err := a.Prompt(ctx, question, slug)
	if err != nil {
		return nil, err
	}

	stream, err := a.llm.GenerateStream(ctx, messages, driven.GenerateOptions{
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: start generation: %w", domain.ErrProviderFailure, err)
	}
	return &answerStream{inner: stream}, nil
}

// Prompt builds the conversation sent to the model for question.
func (a *Answerer) Prompt(ctx context.Context, question, slug string) ([]driven.ChatMessage, error) {
	vector, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrProviderFailure, err)
	}

	hits, err := a.vectors.Query(ctx, slug, a.embedder.ModelName(), vector, a.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	kept := a.fit(hits)
	logger.Debug("Retrieved %d passages for %s, %d fit the context budget", len(hits), slug, len(kept))

	system, err := a.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	human, err := a.prompts.Load(driven.PromptAnswerHuman)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}

	user := strings.NewReplacer(
		driven.PlaceholderContext, RenderContext(kept),
		driven.PlaceholderQuestion, question,
	).Replace(human)
	if a.counter != nil {
		logger.Debug("Prompt estimate: %d tokens", a.counter.Count(system)+a.counter.Count(user))
	}

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}, nil
}

// fit keeps the best-ranked passages whose combined size stays within the
// context budget. Ranking order is preserved.
func (a *Answerer) fit(hits []domain.ScoredPassage) []domain.ScoredPassage {
	if a.cfg.ContextTokens <= 0 || a.counter == nil {
		return hits
	}
	used := 0
	for i, h := range hits {
		used += a.counter.Count(h.Text)
		if used > a.cfg.ContextTokens {
			return hits[:i]
		}
	}
	return hits
}

// RenderContext numbers passages "[1]", "[2]", ... so the model can cite them.
func RenderContext(passages []domain.ScoredPassage) string {
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(p.Text)
	}
	return b.String()
}

// answerStream classifies provider errors raised mid-stream.
type answerStream struct {
	inner driven.TokenStream
}

func (s *answerStream) Recv() (string, error) {
	frag, err := s.inner.Recv()
	if err == nil || errors.Is(err, io.EOF) {
		return frag, err
	}
	if errors.Is(err, domain.ErrProviderFailure) {
		return "", err
	}
	return "", fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
}

func (s *answerStream) Close() error {
	return s.inner.Close()
}
