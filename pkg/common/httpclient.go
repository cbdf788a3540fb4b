package common

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

// retryableStatus codes trigger a retry with exponential backoff
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// UpstreamClient is the shared HTTP client for provider and feed calls.
// It owns the retry/backoff policy so callers do not reimplement it.
type UpstreamClient struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

// NewUpstreamClient builds the client from config, applying defaults
func NewUpstreamClient(cfg types.UpstreamHTTPConfig) *UpstreamClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 350 * time.Millisecond
	}
	return &UpstreamClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

// HTTPClient exposes the underlying client for libraries that need one
func (u *UpstreamClient) HTTPClient() *http.Client {
	return u.client
}

// Do executes the request, retrying on transient failures. The request body
// must be nil or replayable; all current callers use GET.
func (u *UpstreamClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= u.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(u.backoff << (attempt - 1)):
			}
		}

		resp, err := u.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if retryableStatus[resp.StatusCode] && attempt < u.retries {
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// Get is a convenience wrapper around Do
func (u *UpstreamClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return u.Do(req)
}
