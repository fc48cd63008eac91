package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker implements health checking for HTTP dependencies such as the
// photo storage endpoint.
type HTTPChecker struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPChecker creates a health checker that probes the given base URL.
// The name labels the dependency in error messages.
func NewHTTPChecker(name, url string) *HTTPChecker {
	return &HTTPChecker{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck performs a health check by making an HTTP request.
// The dependency is considered healthy for any response below 500; storage
// endpoints commonly return 403 for unauthenticated probes.
func (h *HTTPChecker) HealthCheck(ctx context.Context) error {
	if h.url == "" {
		return fmt.Errorf("%s url not configured", h.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", h.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s unhealthy: unexpected status code %d", h.name, resp.StatusCode)
	}

	return nil
}
