// Package transport provides a ready-made HTTP transport for REST-style
// providers. Anything SDK-specific stays with the caller; this covers the
// common JSON-over-HTTP case and attaches structured status errors so the
// classifier does not have to parse message text.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vietddude/diligence/internal/core/domain"
)

// HTTPConfig configures an HTTP JSON transport for one provider.
type HTTPConfig struct {
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// NewHTTPJSON builds a transport that GETs {base}/{endpoint} with params as
// query string and decodes a JSON body. Non-2xx responses come back as
// *domain.StatusError with any Retry-After header parsed.
func NewHTTPJSON(cfg HTTPConfig) func(ctx context.Context, endpoint string, params map[string]any) (any, error) {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return func(ctx context.Context, endpoint string, params map[string]any) (any, error) {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		u = u.JoinPath(endpoint)

		q := u.Query()
		for name, value := range params {
			q.Set(name, fmt.Sprintf("%v", value))
		}
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http call: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &domain.StatusError{
				Code:       resp.StatusCode,
				Message:    string(body),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		return data, nil
	}
}

// parseRetryAfter handles the delta-seconds form of the Retry-After header.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
