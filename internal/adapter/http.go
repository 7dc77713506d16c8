package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
)

// MaxGetBytesBody caps the body GetBytes accepts
const MaxGetBytesBody = 5 << 20

var (
	// ErrHTTPStatus is wrapped by GetBytes for non-2xx responses
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrBodyTooLarge is returned by GetBytes when the body exceeds MaxGetBytesBody
	ErrBodyTooLarge = errors.New("response body too large")
)

// HTTPRequest is a single request sent without retries
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout bounds this request in addition to the client timeout (0 keeps the client timeout)
	Timeout time.Duration
}

// HTTPResponse is the status and body of a response. Body is capped by the limit given to Do.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// GetBytes performs a GET request, retrying 429 and 5xx responses with backoff, and returns
	// the body and content type of a 2xx response. Bodies over MaxGetBytesBody fail with ErrBodyTooLarge.
	GetBytes(ctx context.Context, url string) ([]byte, string, error)

	// Do performs a single request and returns the response whatever its status.
	// At most maxBody bytes of the body are read (0 reads everything). A body that fails
	// midway is returned as far as it was read.
	Do(ctx context.Context, req HTTPRequest, maxBody int64) (*HTTPResponse, error)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client     *http.Client
	maxElapsed time.Duration
}

// NewHTTPClient creates a new real HTTP client. Retries of GetBytes stop after maxElapsed.
func NewHTTPClient(timeout time.Duration, maxElapsed time.Duration) HTTPClient {
	return &RealHTTPClient{
		client:     &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
	}
}

// GetBytes performs a GET request with exponential backoff on 429 and 5xx
func (c *RealHTTPClient) GetBytes(ctx context.Context, url string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("url", url))
			}
		}()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			logger.Warn("retryable http status", zap.String("url", url), zap.Int("status", resp.StatusCode))
			return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, MaxGetBytesBody+1))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if len(body) > MaxGetBytesBody {
			body = nil
			return backoff.Permanent(fmt.Errorf("%w: more than %d bytes from %s", ErrBodyTooLarge, MaxGetBytesBody, url))
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = c.maxElapsed
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// Do performs a single request without retries
func (c *RealHTTPClient) Do(ctx context.Context, r HTTPRequest, maxBody int64) (*HTTPResponse, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", zap.Error(err), zap.String("url", r.URL))
		}
	}()

	var reader io.Reader = resp.Body
	if maxBody > 0 {
		reader = io.LimitReader(resp.Body, maxBody)
	}
	// the status is already known, so a broken body still yields a response
	respBody, err := io.ReadAll(reader)
	if err != nil {
		logger.Warn("failed to read response body",
			zap.Error(err),
			zap.String("url", r.URL),
			zap.Int("status", resp.StatusCode),
			zap.Int("read_bytes", len(respBody)),
		)
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
