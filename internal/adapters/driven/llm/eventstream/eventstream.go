// Package eventstream reads streamed LLM responses.
//
// It provides a server-sent events reader for the OpenAI and Anthropic
// adapters and a Stream type that turns any decode loop over an HTTP response
// body into a driven.TokenStream.
package eventstream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

// maxLineSize bounds a single SSE line. Provider events are small; a large
// limit only guards against a misbehaving server.
const maxLineSize = 1 << 20

// ErrClosed is returned by Recv after Close.
var ErrClosed = errors.New("stream closed")

// Event is one dispatched server-sent event.
type Event struct {
	// Name is the value of the "event:" field, empty when absent.
	Name string

	// Data is the concatenation of the "data:" lines, joined by newlines.
	Data string
}

// Reader parses a text/event-stream body.
type Reader struct {
	sc *bufio.Scanner
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next event. It returns io.EOF when the body ends with no
// pending event.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		pending bool
	)
	for r.sc.Scan() {
		line := r.sc.Text()
		if line == "" {
			if pending {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}
	if err := r.sc.Err(); err != nil {
		return Event{}, err
	}
	if pending {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// Ensure Stream implements the interface.
var _ driven.TokenStream = (*Stream)(nil)

// NextFunc decodes the next fragment from a provider response.
// An empty fragment with a nil error is skipped. io.EOF ends the stream.
type NextFunc func() (string, error)

// Stream adapts a provider decode loop into a driven.TokenStream.
// Close cancels the request context and closes the body.
type Stream struct {
	body   io.Closer
	cancel context.CancelFunc
	next   NextFunc

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

// NewStream returns a Stream reading fragments with next.
func NewStream(body io.Closer, cancel context.CancelFunc, next NextFunc) *Stream {
	return &Stream{body: body, cancel: cancel, next: next}
}

// Recv returns the next non-empty fragment. Once an error has been returned
// every later call returns the same error.
func (s *Stream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if s.err != nil {
		return "", s.err
	}
	for {
		frag, err := s.next()
		if err != nil {
			s.err = err
			return "", err
		}
		if frag != "" {
			return frag, nil
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.body != nil {
			err = s.body.Close()
		}
	})
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
