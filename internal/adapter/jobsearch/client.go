// Package jobsearch proxies job-listing queries to a third-party job API.
// Plain request/response forwarding, no caching or state.
package jobsearch

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// Query carries the supported search parameters.
type Query struct {
	Keywords string
	Location string
	Remote   bool
	Page     int
}

// Client forwards searches to the configured upstream.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New constructs a Client. baseURL is the upstream root, e.g.
// https://api.example.com/v1/jobs.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Search forwards the query upstream and returns the raw JSON body. Upstream
// transport failures and non-2xx statuses wrap domain.ErrUpstreamUnavailable.
func (c *Client) Search(ctx domain.Context, q Query) ([]byte, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("job search url: %w", err)
	}
	vals := u.Query()
	if q.Keywords != "" {
		vals.Set("q", q.Keywords)
	}
	if q.Location != "" {
		vals.Set("location", q.Location)
	}
	if q.Remote {
		vals.Set("remote", "true")
	}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	u.RawQuery = vals.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("job search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: job search: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: job search read: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: job search status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return body, nil
}
