package eventstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Events(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: content_block_delta\n" +
		"data: {\"a\":1}\n\n" +
		"data: first\n" +
		"data: second\n\n" +
		"data: [DONE]\n"

	r := NewReader(strings.NewReader(body))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Name: "content_block_delta", Data: `{"a":1}`}, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Data: "first\nsecond"}, ev)

	// Final event without a trailing blank line is still dispatched.
	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "[DONE]", ev.Data)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_NoSpaceAfterColon(t *testing.T) {
	r := NewReader(strings.NewReader("data:x\n\n"))
	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", ev.Data)
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error { c.n++; return nil }

func TestStream_SkipsEmptyFragments(t *testing.T) {
	frags := []string{"Hel", "", "lo"}
	i := 0
	s := NewStream(nil, nil, func() (string, error) {
		if i == len(frags) {
			return "", io.EOF
		}
		i++
		return frags[i-1], nil
	})

	var got []string
	for {
		f, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, f)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)

	// Errors are sticky.
	_, err := s.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	body := &closeCounter{}
	cancelled := 0
	s := NewStream(body, func() { cancelled++ }, func() (string, error) { return "x", nil })

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, body.n)
	assert.Equal(t, 1, cancelled)

	_, err := s.Recv()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := Open(context.Background(), srv.Client(), srv.URL, map[string]string{"X-Test": "v"}, []byte(`{}`))
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Contains(t, se.Body, "overloaded")
}

func TestOpen_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: hi\n\n"))
	}))
	defer srv.Close()

	resp, cancel, err := Open(context.Background(), NewClient(0), srv.URL, nil, []byte(`{}`))
	require.NoError(t, err)
	s := NewStream(resp.Body, cancel, func() (string, error) { return "", io.EOF })
	defer s.Close()

	ev, err := NewReader(resp.Body).Next()
	require.NoError(t, err)
	assert.Equal(t, "hi", ev.Data)
}
