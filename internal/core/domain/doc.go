// Package domain defines the core business entities for Bookchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Book: A catalogued book and the slug addressing its vector index
//   - Passage: A chunk of book text plus its embedding
//   - ChatSession / ChatMessage: A user's conversation about one book
//   - IngestionJob: A unit of background work handed to the job queue
//   - Settings: Process-wide configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
