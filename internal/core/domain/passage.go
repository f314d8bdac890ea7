package domain

// Passage is a chunk of book text plus its embedding vector.
// Passages are produced only by ingestion and never mutated afterwards.
type Passage struct {
	// ID is the unique identifier for the passage.
	ID string

	// Slug is the owning book's slug.
	Slug string

	// Position is the ordinal position within the book.
	Position int

	// Text is the passage content.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// ScoredPassage is a retrieval result.
type ScoredPassage struct {
	// Text is the passage content.
	Text string

	// Position is the ordinal position within the book.
	Position int

	// Score is the cosine similarity to the query vector.
	Score float64
}
