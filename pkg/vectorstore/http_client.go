package vectorstore

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// retryConfig tunes the embedding HTTP client's retry behavior.
type retryConfig struct {
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		timeout:     30 * time.Second,
		maxRetries:  3,
		backoffBase: 100 * time.Millisecond,
	}
}

// retryTransport retries server errors and transport failures with
// exponential backoff and jitter. Client errors pass through.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err = t.base.RoundTrip(req.Clone(req.Context()))
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == t.retries {
			break
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		wait := t.backoff * time.Duration(1<<uint(attempt))
		wait += time.Duration(rand.Int63n(int64(wait/4) + 1))

		if deadline, ok := req.Context().Deadline(); ok && time.Until(deadline) < wait {
			break
		}
		select {
		case <-time.After(wait):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", t.retries+1, err)
	}
	return resp, nil
}

func newRetryingClient(cfg retryConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.timeout,
		Transport: &retryTransport{
			base:    http.DefaultTransport,
			retries: cfg.maxRetries,
			backoff: cfg.backoffBase,
		},
	}
}
