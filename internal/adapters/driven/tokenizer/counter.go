// Package tokenizer estimates prompt sizes with tiktoken encodings.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// DefaultEncoding is used when none is configured.
const DefaultEncoding = "cl100k_base"

// Ensure the counters implement the interface.
var (
	_ driven.TokenCounter = (*Counter)(nil)
	_ driven.TokenCounter = Estimate{}
)

// Counter counts tokens with a tiktoken BPE encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New loads the named encoding. tiktoken fetches the BPE ranks on first use
// and caches them under TIKTOKEN_CACHE_DIR, so this can fail offline.
func New(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Counter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate approximates four characters per token.
type Estimate struct{}

// Count returns a rough token count for text.
func (Estimate) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// NewOrEstimate returns a tiktoken counter, or Estimate when the encoding
// cannot be loaded.
func NewOrEstimate(encoding string) (driven.TokenCounter, error) {
	c, err := New(encoding)
	if err != nil {
		return Estimate{}, err
	}
	return c, nil
}
