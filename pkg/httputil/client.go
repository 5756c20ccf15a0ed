package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// Client performs JSON requests with default headers and retries.
type Client struct {
	http     *http.Client
	headers  map[string]string
	attempts int
	delay    time.Duration
}

// NewClient returns a Client with the default timeout and retry policy.
// Pass nil for headers if no default headers are needed.
func NewClient(headers map[string]string) *Client {
	return &Client{
		http:     &http.Client{Timeout: DefaultTimeout},
		headers:  headers,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
	}
}

// WithRetry returns a copy of c with a different retry policy.
func (c *Client) WithRetry(attempts int, delay time.Duration) *Client {
	cp := *c
	cp.attempts = attempts
	cp.delay = delay
	return &cp
}

// WithHTTPClient returns a copy of c that sends requests through hc.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.http = hc
	return &cp
}

// Get performs a GET request and JSON-decodes the response into v,
// retrying transient failures.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return Retry(ctx, c.attempts, c.delay, func() error {
		body, err := c.do(ctx, url)
		if err != nil {
			return err
		}
		defer body.Close()
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return fgerrors.Wrap(fgerrors.ErrCodeInvalidFormat, err, "decode %s", url)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, err, "request %s", url)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, Retryable(fgerrors.Wrap(fgerrors.ErrCodeNetwork, fmt.Errorf("%w: %v", ErrNetwork, err), "GET %s", url))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fgerrors.Wrap(fgerrors.ErrCodeNotFound, ErrNotFound, "status %d", code)
	case code >= 500:
		return Retryable(fgerrors.Wrap(fgerrors.ErrCodeNetwork, ErrNetwork, "status %d", code))
	default:
		return fgerrors.Wrap(fgerrors.ErrCodeNetwork, ErrNetwork, "status %d", code)
	}
}
