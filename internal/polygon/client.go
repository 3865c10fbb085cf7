// Package polygon implements the read side of the collection pipeline: a
// REST client for Polygon's reference and snapshot endpoints, covering
// paginated ticker discovery and concurrency-bounded batch snapshot
// fetching.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.polygon.io"

	tickersPath  = "/v3/reference/tickers"
	snapshotPath = "/v2/snapshot/locale/us/markets/stocks/tickers"

	// Maximum page size accepted by the reference endpoint.
	discoverPageLimit = 1000
)

// APIError represents a failure-class response from Polygon. Any APIError
// aborts the whole operation that produced it; the pipeline never retries.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polygon api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client provides access to the Polygon REST API.
type Client struct {
	baseURL     string
	apiKey      string
	includeOTC  bool
	activeOnly  bool
	batchSize   int
	concurrency int
	maxPages    int
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a Polygon client with production defaults. The zero
// option set matches the deployed collector: active tickers only, no OTC,
// batches of 500 under 5 concurrent requests.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		activeOnly:  true,
		batchSize:   500,
		concurrency: 5,
		httpClient:  newHTTPClient(20*time.Second, 60*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeouts sets the connect and read timeouts applied to every request.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Client) { c.httpClient = newHTTPClient(connect, read) }
}

// WithBatchSize sets the maximum number of tickers per snapshot request.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets the maximum number of snapshot requests in flight.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}

// WithIncludeOTC toggles inclusion of OTC securities in snapshots.
func WithIncludeOTC(include bool) Option {
	return func(c *Client) { c.includeOTC = include }
}

// WithActiveOnly selects between the active and inactive ticker universe.
func WithActiveOnly(active bool) Option {
	return func(c *Client) { c.activeOnly = active }
}

// WithMaxPages caps discovery pagination. The source terminates pagination
// only by omitting its cursor, so a buggy or adversarial source could page
// forever; a non-zero cap turns that into a hard error. 0 means uncapped.
func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = n }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// newHTTPClient builds a client with a distinct dial (connect) timeout and
// an overall request (read) deadline.
func newHTTPClient(connect, read time.Duration) *http.Client {
	return &http.Client{
		Timeout: read,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: connect}).DialContext,
			TLSHandshakeTimeout: connect,
		},
	}
}

// getJSON performs a GET against a fully-built URL and decodes the JSON
// response into result. Failure-class statuses become an *APIError.
func (c *Client) getJSON(ctx context.Context, fullURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
