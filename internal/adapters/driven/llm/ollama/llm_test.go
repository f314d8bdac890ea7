package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/core/ports/driven"
)

func drain(t *testing.T, stream driven.TokenStream) ([]string, error) {
	t.Helper()
	var out []string
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, frag)
	}
}

func TestGenerateStream_Fragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])
		opts := req["options"].(map[string]any)
		// Zero temperature must be sent explicitly.
		assert.Contains(t, opts, "temperature")
		assert.InDelta(t, 0.0, opts["temperature"], 0)
		msgs := req["messages"].([]any)
		assert.Len(t, msgs, 2)

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Call"},"done":false}
{"message":{"role":"assistant","content":" me"},"done":false}
{"message":{"role":"assistant","content":" Ishmael."},"done":false}
{"message":{"role":"assistant","content":""},"done":true}
`))
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{BaseURL: srv.URL})
	stream, err := s.GenerateStream(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "sys"},
		{Role: driven.RoleUser, Content: "q"},
	}, driven.GenerateOptions{})
	require.NoError(t, err)
	defer stream.Close()

	frags, err := drain(t, stream)
	require.NoError(t, err)
	assert.Equal(t, []string{"Call", " me", " Ishmael."}, frags)
}

func TestGenerateStream_ErrorChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"par"},"done":false}
{"error":"model crashed"}
`))
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{BaseURL: srv.URL})
	stream, err := s.GenerateStream(context.Background(), nil, driven.GenerateOptions{})
	require.NoError(t, err)
	defer stream.Close()

	frags, err := drain(t, stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
	assert.Equal(t, []string{"par"}, frags)
}

func TestGenerateStream_Truncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"par"},"done":false}` + "\n"))
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{BaseURL: srv.URL})
	stream, err := s.GenerateStream(context.Background(), nil, driven.GenerateOptions{})
	require.NoError(t, err)
	defer stream.Close()

	_, err = drain(t, stream)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestGenerateStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "nope"})
	_, err := s.GenerateStream(context.Background(), nil, driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{BaseURL: srv.URL})
	assert.Equal(t, DefaultLLMModel, s.ModelName())
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}
