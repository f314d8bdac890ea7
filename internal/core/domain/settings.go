package domain

import (
	"errors"
	"fmt"
	"path/filepath"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the storage engine behind the per-book vector index.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite keeps one SQLite file per slug under the storage root.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPgvector keeps one Postgres table per slug.
	VectorBackendPgvector VectorBackend = "pgvector"

	// VectorBackendMemory keeps vectors in process memory. Not persisted.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendPgvector, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendSQLite:
		return "SQLite (one file per book)"
	case VectorBackendPgvector:
		return "Postgres pgvector (one table per book)"
	case VectorBackendMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// QueueBackend selects the job queue transport.
type QueueBackend string

// Available queue backends.
const (
	// QueueBackendLocal runs jobs on an in-process worker pool.
	QueueBackendLocal QueueBackend = "local"

	// QueueBackendRedis pushes jobs onto a Redis list consumed by `bookchat worker`.
	QueueBackendRedis QueueBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b QueueBackend) IsValid() bool {
	switch b {
	case QueueBackendLocal, QueueBackendRedis:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b QueueBackend) String() string {
	return string(b)
}

// Ingestion and retrieval defaults.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultBatchSize    = 100
	DefaultTopK         = 20

	// SentinelAnswer is the exact reply expected when no passage supports an answer.
	SentinelAnswer = "I could not find the answer in the provided book excerpts."
)

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `toml:"shutdown_timeout_seconds"`
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// DataDir holds the relational database and, for sqlite, the vector root.
	DataDir string `toml:"data_dir"`

	// VectorBackend selects the vector index engine.
	VectorBackend VectorBackend `toml:"vector_backend"`

	// VectorDir overrides the per-slug index root. Defaults to DataDir/vectorstore.
	VectorDir string `toml:"vector_dir"`

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string `toml:"postgres_dsn"`

	// PromptDir holds the editable prompt templates. Defaults to ~/.bookchat/prompts.
	PromptDir string `toml:"prompt_dir"`
}

// VectorRoot returns the directory partitioned by slug.
func (s StorageSettings) VectorRoot() string {
	if s.VectorDir != "" {
		return s.VectorDir
	}
	return filepath.Join(s.DataDir, "vectorstore")
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey is the API key (for OpenAI).
	APIKey string `toml:"api_key"`

	// RequestsPerSecond caps embedding calls. Zero means unlimited.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the LLM model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string `toml:"api_key"`

	// Temperature is the sampling temperature.
	Temperature float64 `toml:"temperature"`

	// MaxTokens caps the generated answer.
	MaxTokens int `toml:"max_tokens"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds answerer configuration.
type RetrievalSettings struct {
	// TopK is the number of passages retrieved per question.
	TopK int `toml:"top_k"`

	// ContextTokens caps the rendered context. Zero disables trimming.
	ContextTokens int `toml:"context_tokens"`

	// Encoding is the tiktoken encoding used to estimate prompt size.
	Encoding string `toml:"encoding"`
}

// IngestionSettings holds chunking and batching configuration.
type IngestionSettings struct {
	// ChunkSize is the maximum passage length in characters.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive passages.
	ChunkOverlap int `toml:"chunk_overlap"`

	// BatchSize bounds how many passages are embedded and written at once.
	BatchSize int `toml:"batch_size"`
}

// QueueSettings holds job queue configuration.
type QueueSettings struct {
	// Backend selects the transport.
	Backend QueueBackend `toml:"backend"`

	// Workers is the number of concurrent job runners.
	Workers int `toml:"workers"`

	// Buffer is the local queue capacity.
	Buffer int `toml:"buffer"`

	// RedisAddr is the Redis server address.
	RedisAddr string `toml:"redis_addr"`

	// RedisKey is the list the jobs are pushed onto.
	RedisKey string `toml:"redis_key"`
}

// AuthSettings holds bearer token verification configuration.
type AuthSettings struct {
	// JWTSecret is the HS256 signing secret.
	JWTSecret string `toml:"jwt_secret"`
}

// Settings holds all application settings.
type Settings struct {
	Server    ServerSettings    `toml:"server"`
	Storage   StorageSettings   `toml:"storage"`
	Embedding EmbeddingSettings `toml:"embedding"`
	LLM       LLMSettings       `toml:"llm"`
	Retrieval RetrievalSettings `toml:"retrieval"`
	Ingestion IngestionSettings `toml:"ingestion"`
	Queue     QueueSettings     `toml:"queue"`
	Auth      AuthSettings      `toml:"auth"`
}

// DefaultSettings returns settings that work against a local Ollama.
func DefaultSettings(dataDir string) Settings {
	return Settings{
		Server: ServerSettings{
			Addr:                   ":8080",
			ShutdownTimeoutSeconds: 10,
		},
		Storage: StorageSettings{
			DataDir:       dataDir,
			VectorBackend: VectorBackendSQLite,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			BaseURL:     "http://localhost:11434",
			Temperature: 0,
		},
		Retrieval: RetrievalSettings{
			TopK:     DefaultTopK,
			Encoding: "cl100k_base",
		},
		Ingestion: IngestionSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			BatchSize:    DefaultBatchSize,
		},
		Queue: QueueSettings{
			Backend:   QueueBackendLocal,
			Workers:   2,
			Buffer:    64,
			RedisAddr: "localhost:6379",
			RedisKey:  "bookchat:jobs",
		},
	}
}

// Validate checks settings for values the process cannot start with.
func (s Settings) Validate() error {
	var errs []error
	if !s.Storage.VectorBackend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.vector_backend: unknown backend %q", s.Storage.VectorBackend))
	}
	if s.Storage.VectorBackend == VectorBackendPgvector && s.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn: required for pgvector backend"))
	}
	if !s.Embedding.Provider.SupportsEmbeddings() {
		errs = append(errs, fmt.Errorf("embedding.provider: %q cannot produce embeddings", s.Embedding.Provider))
	}
	if !s.LLM.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", s.LLM.Provider))
	}
	if s.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval.top_k: must be positive"))
	}
	if s.Ingestion.ChunkSize <= 0 {
		errs = append(errs, errors.New("ingestion.chunk_size: must be positive"))
	}
	if s.Ingestion.ChunkOverlap < 0 || s.Ingestion.ChunkOverlap >= s.Ingestion.ChunkSize {
		errs = append(errs, errors.New("ingestion.chunk_overlap: must be in [0, chunk_size)"))
	}
	if s.Ingestion.BatchSize <= 0 {
		errs = append(errs, errors.New("ingestion.batch_size: must be positive"))
	}
	if !s.Queue.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("queue.backend: unknown backend %q", s.Queue.Backend))
	}
	if s.Queue.Workers <= 0 {
		errs = append(errs, errors.New("queue.workers: must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
