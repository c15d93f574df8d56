// Package alphavantage is the HTTP client for the Alpha Vantage query API.
package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/alphavantage-mcp/internal/common"
	"github.com/bobmcallan/alphavantage-mcp/internal/resolve"
	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

const (
	// DefaultBaseURL is the public Alpha Vantage query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"

	defaultTimeout         = 30 * time.Second
	defaultMaxConcurrency  = 4
	defaultMaxResponseSize = 50 << 20 // 50MB
)

// Response is a successfully fetched and decoded upstream payload. CSV
// bodies are decoded to {"data": [row, ...]}.
type Response struct {
	Status   int
	Payload  map[string]any
	Duration time.Duration
}

// Result pairs a request with its response or classified error. Exactly one
// of Response and Err is set.
type Result struct {
	Request  resolve.EndpointRequest
	Response *Response
	Err      error
}

// Client calls the upstream API. It holds the credential and attaches it to
// every request; nothing else in the gateway sees it.
type Client struct {
	baseURL         string
	apiKey          string
	entitlement     string
	httpClient      *http.Client
	logger          *common.Logger
	maxConcurrency  int
	maxResponseSize int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxConcurrency bounds the number of in-flight requests of one CallAll.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithMaxResponseSize caps how many bytes of a response body are read.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// WithEntitlement sends entitlement=value on requests that don't set one.
func WithEntitlement(value string) Option {
	return func(c *Client) { c.entitlement = value }
}

// NewClient creates a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL, apiKey string, logger *common.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c := &Client{
		baseURL:         baseURL,
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: defaultTimeout},
		logger:          logger,
		maxConcurrency:  defaultMaxConcurrency,
		maxResponseSize: defaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// Call performs one upstream request. Errors are always *toolerr.Error of
// kind UpstreamUnreachable, UpstreamRateLimited or UpstreamRejected. Call
// never retries.
func (c *Client) Call(ctx context.Context, r resolve.EndpointRequest) (*Response, error) {
	q := r.Query()
	if c.entitlement != "" && q.Get("entitlement") == "" {
		q.Set("entitlement", c.entitlement)
	}
	paramNames := strings.Join(r.ParamNames(), ",")
	q.Set("apikey", c.apiKey)

	target := c.baseURL + "?" + q.Encode()
	logger := c.logger

	logger.Debug().Str("function", r.Function).Str("key", r.Key).Str("params", paramNames).Msg("upstream request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.UpstreamUnreachable, c.redact(err), "failed to build %s request", r.Function).WithEndpoint(r.Function)
	}
	req.Header.Set("Accept", "application/json, text/csv")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		logger.Warn().Str("function", r.Function).Int64("duration_ms", duration.Milliseconds()).Str("error", c.redact(err).Error()).Msg("upstream request failed")
		return nil, toolerr.Wrap(toolerr.UpstreamUnreachable, c.redact(err), "%s request failed", r.Function).WithEndpoint(r.Function)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, toolerr.Wrap(toolerr.UpstreamUnreachable, c.redact(err), "failed to read %s response", r.Function).WithEndpoint(r.Function)
	}

	logger.Debug().Str("function", r.Function).Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Int("bytes", len(body)).Msg("upstream response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, toolerr.New(toolerr.UpstreamUnreachable, "%s returned HTTP %d: %s", r.Function, resp.StatusCode, snippet(body)).WithEndpoint(r.Function)
	}

	payload, err := decode(r.Datatype, body)
	if err != nil {
		te, ok := toolerr.As(err)
		if !ok {
			te = toolerr.Wrap(toolerr.UpstreamRejected, err, "%s returned an unreadable payload", r.Function)
		}
		te = te.WithEndpoint(r.Function)
		logger.Warn().Str("function", r.Function).Str("kind", string(te.Kind)).Msg("upstream rejected request")
		return nil, te
	}

	return &Response{Status: resp.StatusCode, Payload: payload, Duration: duration}, nil
}

// CallAll issues every request concurrently, bounded by the configured
// concurrency, and returns one Result per request in request order. A
// failing request never cancels its siblings.
func (c *Client) CallAll(ctx context.Context, reqs []resolve.EndpointRequest) []Result {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	g.SetLimit(c.maxConcurrency)
	for i, r := range reqs {
		g.Go(func() error {
			resp, err := c.Call(ctx, r)
			results[i] = Result{Request: r, Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// decode turns a 2xx body into a payload, classifying the in-band error
// notices Alpha Vantage sends with status 200.
func decode(datatype string, body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, toolerr.New(toolerr.UpstreamRejected, "empty response body")
	}

	// CSV requests still get JSON error notices
	if datatype == "csv" && trimmed[0] != '{' {
		rows, err := parseCSV(trimmed)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": rows}, nil
	}

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{"data": raw}, nil
	}
	if err := classify(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// classify reports the in-band notice carried by payload, if any. A Note,
// Information or Error Message key marks the whole payload as a notice, even
// when data keys sit next to it.
func classify(payload map[string]any) error {
	if msg, ok := payload["Error Message"]; ok {
		return toolerr.New(toolerr.UpstreamRejected, "%s", noticeText(msg))
	}
	for _, k := range []string{"Note", "Information"} {
		msg, ok := payload[k]
		if !ok {
			continue
		}
		text := noticeText(msg)
		if isRateLimitNotice(text) {
			return toolerr.New(toolerr.UpstreamRateLimited, "%s", text)
		}
		return toolerr.New(toolerr.UpstreamRejected, "%s", text)
	}
	return nil
}

func noticeText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

var rateLimitPhrases = []string{
	"rate limit",
	"call frequency",
	"calls per minute",
	"calls per day",
	"requests per minute",
	"requests per day",
}

func isRateLimitNotice(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range rateLimitPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// redact strips the credential from errors that echo the request URL.
func (c *Client) redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && c.apiKey != "" {
		return &url.Error{Op: ue.Op, URL: strings.ReplaceAll(ue.URL, c.apiKey, "REDACTED"), Err: ue.Err}
	}
	return err
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
