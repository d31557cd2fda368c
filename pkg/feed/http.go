package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFeed fetches cost samples from an HTTP endpoint.
//
// The endpoint returns a JSON array of samples:
//
//	[
//	  {"service": "cloud_infra", "amount": 0.42},
//	  {"service": "llm_primary", "operation": "llm_calls", "amount": 0.03}
//	]
//
// A thin relay in front of the real billing API (a GCP cost export, an
// LLM provider usage endpoint) produces this format; the governor stays
// ignorant of provider-specific billing schemas.
type HTTPFeed struct {
	name   string
	url    string
	client *http.Client
}

// HTTPFeedConfig configures an HTTP cost feed.
type HTTPFeedConfig struct {
	// Name identifies the feed in logs.
	Name string

	// URL is the endpoint returning the sample array.
	URL string

	// Timeout bounds each fetch.
	// Default: 10 seconds
	Timeout time.Duration
}

// NewHTTPFeed creates an HTTP cost feed.
func NewHTTPFeed(cfg HTTPFeedConfig) (*HTTPFeed, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("feed name cannot be empty")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed %q: url cannot be empty", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPFeed{
		name:   cfg.Name,
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name identifies the feed.
func (f *HTTPFeed) Name() string {
	return f.name
}

// Fetch retrieves the current sample batch.
func (f *HTTPFeed) Fetch(ctx context.Context) ([]Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, unavailable(f.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, unavailable(f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(f.name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, unavailable(f.name, err)
	}

	var samples []Sample
	if err := json.Unmarshal(body, &samples); err != nil {
		return nil, unavailable(f.name, fmt.Errorf("parse payload: %v", err))
	}
	return samples, nil
}
