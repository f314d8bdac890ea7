// Package vectorstore holds the ranking and embedding-space checks shared by
// the per-slug vector index backends.
package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank sorts hits by score descending, ties broken by position, and keeps at most k.
func Rank(hits []domain.ScoredPassage, k int) []domain.ScoredPassage {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Space identifies the embedding space an index was built in.
type Space struct {
	Model     string
	Dimension int
}

// Check reports an error when vectors from other cannot be compared with this space.
// An empty Model on either side matches any model.
func (s Space) Check(other Space) error {
	if s.Model != "" && other.Model != "" && s.Model != other.Model {
		return fmt.Errorf("%w: index built with model %q, got %q", domain.ErrIndexUnavailable, s.Model, other.Model)
	}
	if s.Dimension != other.Dimension {
		return fmt.Errorf("%w: index has dimension %d, got %d", domain.ErrIndexUnavailable, s.Dimension, other.Dimension)
	}
	return nil
}

// ValidateBatch checks a batch is non-empty in vectors and uniform in dimension.
// It returns the common dimension.
func ValidateBatch(passages []domain.Passage) (int, error) {
	if len(passages) == 0 {
		return 0, nil
	}
	dim := len(passages[0].Embedding)
	if dim == 0 {
		return 0, fmt.Errorf("%w: passage %d has no embedding", domain.ErrInvalidInput, passages[0].Position)
	}
	for _, p := range passages[1:] {
		if len(p.Embedding) != dim {
			return 0, fmt.Errorf("%w: mixed embedding dimensions %d and %d", domain.ErrInvalidInput, dim, len(p.Embedding))
		}
	}
	return dim, nil
}

// CheckSlug rejects slugs that are not safe to use as a namespace key.
func CheckSlug(slug string) error {
	if !domain.ValidSlug(slug) {
		return fmt.Errorf("%w: invalid slug %q", domain.ErrInvalidInput, slug)
	}
	return nil
}
