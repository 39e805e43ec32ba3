package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnconfigured is returned when no resolver endpoint is set.
var ErrUnconfigured = errors.New("social resolver not configured")

// Resolver proxies social-media link-resolution requests to a third-party
// API. It holds no state of its own: the request body and the upstream
// response pass through untouched.
type Resolver struct {
	endpoint string
	client   *http.Client
}

// NewResolver creates a resolver for the given endpoint. An empty endpoint
// produces a resolver that rejects every request with ErrUnconfigured.
func NewResolver(endpoint string) *Resolver {
	return &Resolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Resolve forwards the JSON request body to the upstream API and returns
// the response body and status verbatim.
func (r *Resolver) Resolve(ctx context.Context, body io.Reader) ([]byte, int, error) {
	if r.endpoint == "" {
		return nil, 0, ErrUnconfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build resolver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read resolver response: %w", err)
	}

	return data, resp.StatusCode, nil
}
