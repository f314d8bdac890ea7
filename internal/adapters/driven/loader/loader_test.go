package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/normalisers"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStat(t *testing.T) {
	l := New(normalisers.Defaults())
	ctx := context.Background()

	path := writeFile(t, "book.txt", "hello")
	require.NoError(t, l.Stat(ctx, path))
	require.NoError(t, l.Stat(ctx, "file://"+path))

	err := l.Stat(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	err = l.Stat(ctx, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestLoad_PlainText(t *testing.T) {
	l := New(normalisers.Defaults())
	path := writeFile(t, "moby_dick.txt", "Call me Ishmael.\r\n\r\nSome years ago.")

	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, doc.URI)
	assert.Equal(t, "moby dick", doc.Title)
	assert.Equal(t, "Call me Ishmael.\n\nSome years ago.", doc.Content)
	assert.Equal(t, "text/plain", doc.Metadata["mime_type"])
	assert.Equal(t, int64(35), doc.Metadata["size"])
}

func TestLoad_Markdown(t *testing.T) {
	l := New(normalisers.Defaults())
	path := writeFile(t, "chapter.md", "# Loomings\n\nCall me *Ishmael*.")

	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Loomings", doc.Title)
	assert.Equal(t, "Loomings\n\nCall me Ishmael.", doc.Content)
}

func TestLoad_Missing(t *testing.T) {
	l := New(normalisers.Defaults())
	_, err := l.Load(context.Background(), "/definitely/not/here.txt")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestLoad_TooLarge(t *testing.T) {
	l := New(normalisers.Defaults(), WithMaxBytes(4))
	path := writeFile(t, "big.txt", "0123456789")

	_, err := l.Load(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/books/moby.txt":
			_, _ = w.Write([]byte("It was the Pequod."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := New(normalisers.Defaults(), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	require.NoError(t, l.Stat(ctx, srv.URL+"/books/moby.txt"))
	doc, err := l.Load(ctx, srv.URL+"/books/moby.txt")
	require.NoError(t, err)
	assert.Equal(t, "It was the Pequod.", doc.Content)

	assert.ErrorIs(t, l.Stat(ctx, srv.URL+"/missing.txt"), domain.ErrSourceNotFound)
	_, err = l.Load(ctx, srv.URL+"/missing.txt")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestStat_FallsBackToRangedGet(t *testing.T) {
	var ranges []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ranges = append(ranges, r.Header.Get("Range"))
		if r.URL.Path != "/signed/moby.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("I"))
	}))
	defer srv.Close()

	l := New(normalisers.Defaults(), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	require.NoError(t, l.Stat(ctx, srv.URL+"/signed/moby.txt"))
	assert.ErrorIs(t, l.Stat(ctx, srv.URL+"/signed/missing.txt"), domain.ErrSourceNotFound)
	assert.Equal(t, []string{"bytes=0-0", "bytes=0-0"}, ranges)
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		declared string
		content  []byte
		want     string
	}{
		{"markdown extension", "a.md", "", nil, "text/markdown"},
		{"pdf extension", "a.PDF", "", nil, "application/pdf"},
		{"declared type", "download", "text/plain; charset=utf-8", nil, "text/plain; charset=utf-8"},
		{"sniffed pdf", "download", "application/octet-stream", []byte("%PDF-1.4\n"), "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectType(tt.file, tt.declared, tt.content))
		})
	}
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/tmp/a.txt", localPath("file:///tmp/a.txt"))
	assert.Equal(t, "/tmp/a.txt", localPath("/tmp/a.txt"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books/a.txt"), localPath("~/books/a.txt"))
}
