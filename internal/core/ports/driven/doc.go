// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Maps text to vectors, at ingestion and at query time
//   - LLMService: Streams generated text
//   - VectorStore: One isolated vector index per book slug
//   - DocumentLoader: Resolves a content URL to plain text
//   - TextSplitter: Splits text into overlapping passages
//   - BookStore, SessionStore: Relational records
//   - JobQueue: Asynchronous, at-least-once job transport
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PromptStore: Without it, built-in prompt templates are used.
//   - TokenCounter: Without it, retrieved context is not trimmed to a token budget.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
