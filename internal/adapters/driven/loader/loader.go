// Package loader resolves book content URLs to normalised documents.
//
// Local paths, file:// URLs and http(s) URLs are supported. Bytes are handed
// to a NormaliserRegistry which picks the extractor for the detected type.
package loader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Default configuration values.
const (
	DefaultMaxBytes = 256 << 20
	DefaultTimeout  = 60 * time.Second
)

// extensionTypes covers book formats whose extension the platform MIME table
// may not know.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".pdf":      "application/pdf",
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for http(s) URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithMaxBytes caps the size of a document.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// Loader reads documents from disk or over HTTP.
type Loader struct {
	registry driven.NormaliserRegistry
	client   *http.Client
	maxBytes int64
}

// New creates a Loader that normalises through registry.
func New(registry driven.NormaliserRegistry, opts ...Option) *Loader {
	l := &Loader{
		registry: registry,
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stat checks that contentURL resolves to a readable document.
func (l *Loader) Stat(ctx context.Context, contentURL string) error {
	if isRemote(contentURL) {
		status, err := l.probe(ctx, contentURL, http.MethodHead)
		if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
			// Some object stores only sign GET.
			status, err = l.probe(ctx, contentURL, http.MethodGet)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, contentURL, err)
		}
		if status != http.StatusOK && status != http.StatusPartialContent {
			return fmt.Errorf("%w: %s: status %d", domain.ErrSourceNotFound, contentURL, status)
		}
		return nil
	}

	path := localPath(contentURL)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrSourceNotFound, path)
	}
	return nil
}

// probe requests contentURL without reading its body. GET asks for the
// first byte only.
func (l *Loader) probe(ctx context.Context, contentURL, method string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, contentURL, http.NoBody)
	if err != nil {
		return 0, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Load reads and normalises the document at contentURL.
func (l *Loader) Load(ctx context.Context, contentURL string) (*domain.Document, error) {
	var (
		raw *domain.RawDocument
		err error
	)
	if isRemote(contentURL) {
		raw, err = l.fetch(ctx, contentURL)
	} else {
		raw, err = l.read(localPath(contentURL))
	}
	if err != nil {
		return nil, err
	}

	doc, err := l.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", contentURL, err)
	}
	return doc, nil
}

func (l *Loader) read(path string) (*domain.RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrSourceNotFound, path)
	}

	content, err := l.readAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &domain.RawDocument{
		URI:      path,
		MIMEType: detectType(path, "", content),
		Content:  content,
		Metadata: map[string]any{
			"size":     info.Size(),
			"modified": info.ModTime(),
		},
	}, nil
}

func (l *Loader) fetch(ctx context.Context, contentURL string) (*domain.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, contentURL, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceNotFound, contentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", domain.ErrSourceNotFound, contentURL, resp.StatusCode)
	}

	content, err := l.readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", contentURL, err)
	}

	u, _ := url.Parse(contentURL)
	name := contentURL
	if u != nil {
		name = u.Path
	}

	return &domain.RawDocument{
		URI:      contentURL,
		MIMEType: detectType(name, resp.Header.Get("Content-Type"), content),
		Content:  content,
		Metadata: map[string]any{"size": int64(len(content))},
	}, nil
}

// readAll reads r up to the size cap.
func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > l.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrInvalidInput, l.maxBytes)
	}
	return content, nil
}

// detectType prefers the file extension, then a server-declared type, then
// content sniffing.
func detectType(name, declared string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	return mimetype.Detect(content).String()
}

func isRemote(contentURL string) bool {
	return strings.HasPrefix(contentURL, "http://") || strings.HasPrefix(contentURL, "https://")
}

// localPath strips a file:// scheme and expands a leading "~/".
func localPath(contentURL string) string {
	path := strings.TrimPrefix(contentURL, "file://")
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

