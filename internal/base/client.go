// Package base provides the shared HTTP client infrastructure for the GLEIF API.
package base

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apierrors "github.com/olgasafonova/gleif-mcp-server/internal/errors"
	"github.com/olgasafonova/gleif-mcp-server/metrics"
)

const (
	// DefaultBaseURL is the GLEIF REST API v1.0 endpoint
	DefaultBaseURL = "https://api.gleif.org/api/v1"

	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies this server to GLEIF
	DefaultUserAgent = "gleif-mcp-server/1.0 (github.com/olgasafonova/gleif-mcp-server)"

	// DefaultAccept is the JSON:API media type served by GLEIF
	DefaultAccept = "application/vnd.api+json"
)

// Client issues single GET requests against the GLEIF API.
// It is safe for concurrent use and holds no per-request state.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	BaseURL    string
	UserAgent  string
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithBaseURL overrides the GLEIF API base URL (mirrors, tests)
func WithBaseURL(u string) ClientOption {
	return func(client *Client) {
		client.BaseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent header sent upstream
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.UserAgent = ua
		}
	}
}

// WithTimeout sets the overall request timeout on the default HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.HTTPClient.Timeout = d
		}
	}
}

// NewClient creates a new base client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient: newHTTPClient(DefaultTimeout),
		Logger:     slog.Default(),
		BaseURL:    DefaultBaseURL,
		UserAgent:  DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	c.HTTPClient.CloseIdleConnections()
}

// RequestConfig configures a single HTTP request
type RequestConfig struct {
	// Path is the already-interpolated path, e.g. "/countries/DE"
	Path string

	// Query is the encoded query string without the leading '?'
	Query string

	// Endpoint is the path template used as a low-cardinality metrics label
	Endpoint string

	// Headers are extra static headers for this request
	Headers map[string]string
}

// URL returns the absolute request URL for cfg.
func (c *Client) URL(cfg RequestConfig) string {
	path := cfg.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.BaseURL + path
	if cfg.Query != "" {
		u += "?" + cfg.Query
	}
	return u
}

// DoRequest performs exactly one GET request and returns the response body and
// status code. Non-2xx statuses are not errors here; the caller decides.
// Failures that produce no HTTP response return an UpstreamTransportError.
func (c *Client) DoRequest(ctx context.Context, cfg RequestConfig) ([]byte, int, error) {
	reqURL := c.URL(cfg)
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = cfg.Path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &apierrors.UpstreamTransportError{Path: cfg.Path, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", DefaultAccept)
	req.Header.Set("User-Agent", c.UserAgent)
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, time.Since(start).Seconds(), false, "transport")
		c.Logger.Warn("GLEIF request failed",
			"url", reqURL,
			"error", err)
		return nil, 0, &apierrors.UpstreamTransportError{Path: cfg.Path, Err: err}
	}

	body, err := readAndClose(resp)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordAPICall(endpoint, duration, false, "read_body")
		return nil, resp.StatusCode, &apierrors.UpstreamTransportError{Path: cfg.Path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	errorCode := ""
	if !success {
		errorCode = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	metrics.RecordAPICall(endpoint, duration, success, errorCode)

	c.Logger.Debug("GLEIF request completed",
		"url", reqURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", int64(duration*1000))

	return body, resp.StatusCode, nil
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body, err
}

// Truncate shortens a string to maxLen, adding "..." if truncated
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with pooled, traced transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DisableCompression:    false,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(transport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "gleif " + r.Method + " " + r.URL.Path
			}),
		),
	}
}
