package driven

import "context"

// LLMService streams text generations.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
type LLMService interface {
	// GenerateStream starts a streaming generation for the conversation.
	// The caller must Close the returned stream on every exit path.
	GenerateStream(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (TokenStream, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TokenStream is a pull-based sequence of generated text fragments.
// Fragments arrive in generation order.
type TokenStream interface {
	// Recv blocks until the next fragment is available.
	// It returns io.EOF once the model has finished. Any other error means the
	// generation failed and the fragments received so far are incomplete.
	Recv() (string, error)

	// Close releases the underlying provider connection.
	// It is safe to call more than once and before the stream is drained.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Conversation roles understood by every LLM adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
