package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswerSystem constrains the model to the supplied excerpts.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerHuman carries the retrieved context and the question,
	// substituted for PlaceholderContext and PlaceholderQuestion.
	PromptAnswerHuman = "answer_human"
)

// Placeholders in PromptAnswerHuman. Text outside them is copied verbatim.
const (
	PlaceholderContext  = "{context}"
	PlaceholderQuestion = "{question}"
)

// TokenCounter estimates how many model tokens a text occupies.
type TokenCounter interface {
	Count(text string) int
}
