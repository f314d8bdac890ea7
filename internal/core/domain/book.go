package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Book is a catalogued book whose text can be queried.
type Book struct {
	// ID is the numeric record identifier assigned on first persist.
	ID int64

	// Author is the book's author.
	Author string

	// Title is the book's title.
	Title string

	// Rating is the catalogue rating, exclusive range (0, 5).
	Rating float64

	// Description is an optional blurb.
	Description string

	// ContentURL locates the source document (file path or file:// URL).
	ContentURL string

	// Slug is the URL-safe identifier derived from Title and ID.
	// It is assigned once, after the first persist, and never changes.
	// It is the only key used to address the book's vector index.
	Slug string

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// Validate checks the user-supplied fields of a book.
func (b *Book) Validate() error {
	if strings.TrimSpace(b.Author) == "" {
		return fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if b.Rating <= 0 || b.Rating >= 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5 (exclusive)", ErrInvalidInput)
	}
	if strings.TrimSpace(b.ContentURL) == "" {
		return fmt.Errorf("%w: content URL is required", ErrInvalidInput)
	}
	return nil
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// foldAccents maps common Latin accented letters to ASCII.
var foldAccents = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a", "æ", "ae",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o", "œ", "oe",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y",
	"ß", "ss",
	"'", "", "’", "",
)

// Slugify converts text into a lowercase, hyphen-separated, URL-safe string.
func Slugify(text string) string {
	s := foldAccents.Replace(strings.ToLower(text))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// BookSlug derives the slug for a persisted book from its title and record ID.
// The ID suffix makes the slug globally unique.
func BookSlug(title string, id int64) string {
	base := Slugify(title)
	if base == "" {
		return fmt.Sprintf("book-%d", id)
	}
	return fmt.Sprintf("%s-%d", base, id)
}

// ValidSlug reports whether s is a well-formed slug.
// Slugs double as directory and table names, so nothing else is accepted.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
