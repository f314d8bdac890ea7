package eventstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is returned by Open when the provider answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Open posts a JSON body and returns the streaming response.
// The returned cancel func must be called once the body is no longer needed;
// Stream.Close does that.
func Open(
	ctx context.Context,
	client *http.Client,
	url string,
	headers map[string]string,
	body []byte,
) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		msg, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err != nil {
			return nil, nil, &StatusError{StatusCode: resp.StatusCode, Body: "failed to read response"}
		}
		return nil, nil, &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	return resp, cancel, nil
}

// NewClient returns an HTTP client for streaming calls. The timeout bounds
// the wait for response headers only, so long generations are not cut off.
func NewClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}
