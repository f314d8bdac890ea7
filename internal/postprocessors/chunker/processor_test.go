package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	p := New()
	for _, in := range []string{"", "   \n\n  "} {
		if chunks := p.Split(in); len(chunks) != 0 {
			t.Errorf("expected 0 chunks for %q, got %d", in, len(chunks))
		}
	}
}

func TestSplit_SmallContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	content := "This is a small piece of content."

	chunks := p.Split(content)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small content, got %d", len(chunks))
	}
	if chunks[0] != content {
		t.Errorf("expected chunk to match content, got %q", chunks[0])
	}
}

func TestSplit_Paragraphs(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	paragraphs := []string{
		"Call me Ishmael. Some years ago I thought I would sail about.",
		"The ship was called the Pequod, a whaler out of Nantucket.",
		"Captain Ahab hunted the white whale across every ocean.",
	}

	chunks := p.Split(strings.Join(paragraphs, "\n\n"))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, want := range paragraphs {
		if chunks[i] != want {
			t.Errorf("chunk %d: expected %q, got %q", i, want, chunks[i])
		}
	}
}

func TestSplit_CharacterFallbackWithOverlap(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))

	chunks := p.Split("0123456789ABCDEFGHIJ")
	want := []string{"0123456789", "789ABCDEFG", "EFGHIJ"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplit_LargeContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	chunks := p.Split(strings.Repeat("x", 250))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 100 {
		t.Errorf("expected first chunk size 100, got %d", len(chunks[0]))
	}
}

func TestSplit_WordsOverlap(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(8))

	chunks := p.Split("alpha beta gamma delta epsilon zeta eta theta")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 20 {
			t.Errorf("chunk %d exceeds size: %d runes (%q)", i, n, c)
		}
	}
	// Consecutive chunks share at least one word.
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		first := strings.Fields(chunks[i])[0]
		if prev[len(prev)-1] != first {
			t.Errorf("chunk %d does not start with the tail of chunk %d: %q / %q", i, i-1, chunks[i-1], chunks[i])
		}
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	p := New(WithChunkSize(5), WithOverlap(0))

	chunks := p.Split("ééééééééééé")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	if utf8.RuneCountInString(chunks[0]) != 5 {
		t.Errorf("expected 5 runes, got %d", utf8.RuneCountInString(chunks[0]))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	text := strings.Repeat("The whale surfaced near the boat.\nSailors shouted. ", 20)

	a := p.Split(text)
	b := p.Split(text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}
