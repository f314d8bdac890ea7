package driven

import (
	"context"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// Normaliser extracts plain text from raw document bytes.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Generic MIME normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a document with Content populated.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// DocumentLoader resolves a content URL to plain text.
// Format-specific extraction is delegated to Normalisers.
type DocumentLoader interface {
	// Stat checks that the URL resolves to a readable document.
	// Returns domain.ErrSourceNotFound otherwise.
	Stat(ctx context.Context, contentURL string) error

	// Load reads and normalises the document.
	Load(ctx context.Context, contentURL string) (*domain.Document, error)
}

// TextSplitter splits document text into ordered, overlapping passages.
// Implementations are pure and deterministic for a fixed configuration.
type TextSplitter interface {
	Split(text string) []string
}
