package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/loader"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/queue/local"
	redisqueue "github.com/custodia-labs/bookchat/internal/adapters/driven/queue/redis"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/tokenizer"
	vectormemory "github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore/pgvector"
	vectorsqlite "github.com/custodia-labs/bookchat/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
	"github.com/custodia-labs/bookchat/internal/core/services"
	"github.com/custodia-labs/bookchat/internal/logger"
	"github.com/custodia-labs/bookchat/internal/normalisers"
	"github.com/custodia-labs/bookchat/internal/postprocessors/chunker"
)

// Deps are the driven adapters an App is assembled from.
type Deps struct {
	Books     driven.BookStore
	Sessions  driven.SessionStore
	Vectors   driven.VectorStore
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Prompts   driven.PromptStore
	Counter   driven.TokenCounter
	Loader    driven.DocumentLoader
	Queue     driven.JobQueue

	// Closers run in reverse order on App.Close.
	Closers []func() error
}

// App is the fully wired application shared by every command.
type App struct {
	Settings domain.Settings
	Deps

	Ingestion  *services.IngestionPipeline
	Answerer   *services.Answerer
	Guard      *services.SessionGuard
	Chat       *services.ChatService
	Dispatcher *services.JobDispatcher
	Catalog    *services.CatalogService
}

// Assemble builds the core services on top of deps.
func Assemble(settings domain.Settings, deps Deps) *App {
	splitter := chunker.New(
		chunker.WithChunkSize(settings.Ingestion.ChunkSize),
		chunker.WithOverlap(settings.Ingestion.ChunkOverlap),
	)
	ingestion := services.NewIngestionPipeline(deps.Loader, splitter, deps.Embedding, deps.Vectors, settings.Ingestion.BatchSize)
	answerer := services.NewAnswerer(deps.Embedding, deps.Vectors, deps.LLM, deps.Prompts, deps.Counter, services.AnswererConfig{
		TopK:          settings.Retrieval.TopK,
		ContextTokens: settings.Retrieval.ContextTokens,
		Temperature:   settings.LLM.Temperature,
		MaxTokens:     settings.LLM.MaxTokens,
	})
	guard := services.NewSessionGuard(deps.Books, deps.Sessions)
	dispatcher := services.NewJobDispatcher(deps.Queue)

	return &App{
		Settings:   settings,
		Deps:       deps,
		Ingestion:  ingestion,
		Answerer:   answerer,
		Guard:      guard,
		Chat:       services.NewChatService(guard, deps.Books, answerer),
		Dispatcher: dispatcher,
		Catalog:    services.NewCatalogService(deps.Books, dispatcher),
	}
}

// NewApp opens every adapter named by settings and assembles the App.
// Provider connectivity is not checked; use `bookchat check` for that.
func NewApp(ctx context.Context, settings domain.Settings) (app *App, err error) {
	var deps Deps
	defer func() {
		if err != nil {
			closeAll(deps.Closers)
		}
	}()

	store, err := sqlite.NewStore(settings.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	deps.Closers = append(deps.Closers, store.Close)
	deps.Books = store.BookStore()
	deps.Sessions = store.SessionStore()

	deps.Vectors, err = openVectors(ctx, settings.Storage)
	if err != nil {
		return nil, err
	}
	deps.Closers = append(deps.Closers, deps.Vectors.Close)

	aiServices, err := ai.NewServices(&settings)
	if err != nil {
		return nil, err
	}
	deps.Closers = append(deps.Closers, aiServices.Close)
	deps.Embedding = aiServices.Embedding
	deps.LLM = aiServices.LLM

	prompts, err := file.NewPromptStore(settings.Storage.PromptDir)
	if err != nil {
		return nil, err
	}
	deps.Prompts = prompts

	counter, err := tokenizer.NewOrEstimate(settings.Retrieval.Encoding)
	if err != nil {
		logger.Warn("Token counting falls back to an estimate: %v", err)
	}
	deps.Counter = counter

	deps.Loader = loader.New(normalisers.Defaults())

	deps.Queue = openQueue(settings.Queue)
	deps.Closers = append(deps.Closers, deps.Queue.Close)

	logger.Debug("Wired %s vectors, %s queue, %s/%s embeddings, %s/%s answers",
		settings.Storage.VectorBackend, settings.Queue.Backend,
		settings.Embedding.Provider, deps.Embedding.ModelName(),
		settings.LLM.Provider, deps.LLM.ModelName())

	return Assemble(settings, deps), nil
}

func openVectors(ctx context.Context, storage domain.StorageSettings) (driven.VectorStore, error) {
	switch storage.VectorBackend {
	case domain.VectorBackendSQLite:
		store, err := vectorsqlite.New(storage.VectorRoot())
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		return store, nil
	case domain.VectorBackendPgvector:
		store, err := pgvector.New(ctx, storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		return store, nil
	case domain.VectorBackendMemory:
		return vectormemory.New(), nil
	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrInvalidInput, storage.VectorBackend)
	}
}

func openQueue(cfg domain.QueueSettings) driven.JobQueue {
	if cfg.Backend == domain.QueueBackendRedis {
		return redisqueue.New(redisqueue.Config{
			Addr:    cfg.RedisAddr,
			Key:     cfg.RedisKey,
			Workers: cfg.Workers,
		})
	}
	return local.New(cfg.Workers, cfg.Buffer)
}

// Close releases every adapter.
func (a *App) Close() error {
	return closeAll(a.Closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}
