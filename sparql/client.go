// Package sparql provides a SPARQL-over-HTTP client for the editor's
// endpoint bookkeeping queries and for user query execution.
//
// Bookkeeping requests (prefixes, examples, autocomplete term lists) carry
// an "ac=1" flag so the endpoint's request log can exclude them from usage
// statistics. User queries run through Execute do not.
package sparql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/google/uuid"

	"github.com/c360studio/sparqled/metrics"
)

// defaultMaxResponseSize limits endpoint response bodies.
const defaultMaxResponseSize = 32 * 1024 * 1024 // 32MB

// Result formats understood by the endpoint's "format" parameter.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Request kinds, used for logging and metrics labels.
const (
	KindPrefixes   = "prefixes"
	KindExamples   = "examples"
	KindClasses    = "class"
	KindProperties = "property"
	KindQuery      = "query"
)

// Request describes one GET request against the endpoint.
type Request struct {
	// Query is the SPARQL query text.
	Query string

	// Format selects the result format. Empty leaves content negotiation
	// to the endpoint.
	Format string

	// Bookkeeping marks editor-internal requests; they carry ac=1.
	Bookkeeping bool

	// Kind labels the request in logs and metrics.
	Kind string
}

// Response is a raw endpoint response.
type Response struct {
	RequestID   string
	Body        []byte
	StatusCode  int
	ContentType string
	Elapsed     time.Duration
}

// Client sends SPARQL queries to a single endpoint over HTTP GET.
type Client struct {
	endpoint        string
	httpClient      *http.Client
	retryConfig     retry.Config
	userAgent       string
	maxResponseSize int64
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.httpClient.Timeout = d
		}
	}
}

// WithRetryConfig sets the retry configuration. MaxAttempts of 1 disables retries.
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

// WithMaxResponseSize caps the body size per response. Larger responses fail
// with ErrResponseTooLarge.
func WithMaxResponseSize(n int64) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.maxResponseSize = n
		}
	}
}

// WithMetrics records request counts and durations.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// DefaultRetryConfig runs each request exactly once.
func DefaultRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	return cfg
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be an http(s) URL: %s", endpoint)
	}

	c := &Client{
		endpoint:        endpoint,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		retryConfig:     DefaultRetryConfig(),
		userAgent:       "sparqled",
		maxResponseSize: defaultMaxResponseSize,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Endpoint returns the endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BuildURL returns the GET URL for a request. Parameters already present on
// the endpoint URL are preserved.
func (c *Client) BuildURL(req Request) string {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		// NewClient validated the endpoint.
		return c.endpoint
	}
	q := u.Query()
	if req.Format != "" {
		q.Set("format", req.Format)
	}
	if req.Bookkeeping {
		q.Set("ac", "1")
	}
	q.Set("query", req.Query)
	u.RawQuery = q.Encode()
	return u.String()
}

// Do sends a request and returns the raw response. Non-200 statuses are
// returned as classified errors.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Select runs a bookkeeping SELECT and decodes the JSON results.
func (c *Client) Select(ctx context.Context, kind, query string) (*Results, error) {
	resp, err := c.Do(ctx, Request{
		Query:       query,
		Format:      FormatJSON,
		Bookkeeping: true,
		Kind:        kind,
	})
	if err != nil {
		return nil, err
	}
	return ParseResults(resp.Body)
}

// SelectTerms runs a bookkeeping single-variable SELECT as CSV and returns
// the values without the header row.
func (c *Client) SelectTerms(ctx context.Context, kind, query string) ([]string, error) {
	resp, err := c.Do(ctx, Request{
		Query:       query,
		Format:      FormatCSV,
		Bookkeeping: true,
		Kind:        kind,
	})
	if err != nil {
		return nil, err
	}
	return ParseTermList(string(resp.Body)), nil
}

// Execute runs a user query. Any HTTP status is returned in the Response so
// the results view can display endpoint errors; only transport failures
// produce an error.
func (c *Client) Execute(ctx context.Context, query string) (*Response, error) {
	return c.send(ctx, Request{Query: query, Kind: KindQuery}, false)
}

// send performs the request with the configured retry policy.
func (c *Client) send(ctx context.Context, req Request, requireOK bool) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if req.Kind == "" {
		req.Kind = KindQuery
	}

	requestID := uuid.New().String()
	startedAt := time.Now()

	var resp *Response
	err := retry.Do(ctx, c.retryConfig, func() error {
		r, err := c.doRequest(ctx, requestID, req, requireOK)
		if err != nil {
			if IsFatal(err) {
				return retry.NonRetryable(err)
			}
			return err
		}
		resp = r
		return nil
	})

	elapsed := time.Since(startedAt)
	c.metrics.ObserveRequest(req.Kind, err, elapsed)

	if err != nil {
		c.logger.Debug("SPARQL request failed",
			"request_id", requestID,
			"kind", req.Kind,
			"endpoint", c.endpoint,
			"error", err)
		return nil, err
	}

	resp.Elapsed = elapsed
	return resp, nil
}

// doRequest executes a single HTTP GET.
func (c *Client) doRequest(ctx context.Context, requestID string, req Request, requireOK bool) (*Response, error) {
	target := c.BuildURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	switch req.Format {
	case FormatJSON:
		httpReq.Header.Set("Accept", "application/sparql-results+json")
	case FormatCSV:
		httpReq.Header.Set("Accept", "text/csv")
	}

	c.logger.Debug("Sending SPARQL request",
		"request_id", requestID,
		"kind", req.Kind,
		"endpoint", c.endpoint,
		"bookkeeping", req.Bookkeeping)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxResponseSize+1))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, NewFatalError(fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, c.maxResponseSize))
	}

	if requireOK && httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, body)
	}

	return &Response{
		RequestID:   requestID,
		Body:        body,
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
	}, nil
}
