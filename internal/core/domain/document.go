package domain

// Document is the plain-text form of a source document.
type Document struct {
	// URI is the original location.
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full extracted text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any
}
