// Package api implements the HTTP client for the FlowMaestro public API:
// workflows, executions, agents and threads, and knowledge bases.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client defaults applied when Config fields are zero.
const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 10
	defaultBurst     = 10
	defaultUserAgent = "flowmaestro-go/" + Version
)

// Version is the client library version reported in the User-Agent header
// and checked against the server's minimum supported client version.
const Version = "1.2.0"

// Config configures a Client.
type Config struct {
	// APIKey is the bearer token for authentication. Required.
	APIKey string

	// BaseURL is the API root, e.g. "https://api.flowmaestro.io/v1".
	BaseURL string

	// Timeout is the per-request timeout. Streaming requests are exempt.
	Timeout time.Duration

	// RateLimit is the sustained client-side requests per second.
	RateLimit float64

	// Burst is the rate limiter burst size.
	Burst int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Logger receives request-level debug logging.
	Logger zerolog.Logger
}

// Client is a FlowMaestro API client. It applies bearer authentication,
// client-side rate limiting, and idempotency keys, and maps error responses
// to the package's error taxonomy. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	// streamClient has no timeout so SSE connections can outlive
	// Config.Timeout.
	streamClient *http.Client
	limiter      *rate.Limiter
	logger       zerolog.Logger

	Workflows      *WorkflowsService
	Executions     *ExecutionsService
	Agents         *AgentsService
	Threads        *ThreadsService
	KnowledgeBases *KnowledgeBasesService
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api: API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		userAgent:    cfg.UserAgent,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:       cfg.Logger.With().Str("component", "api").Logger(),
	}

	c.Workflows = &WorkflowsService{client: c}
	c.Executions = &ExecutionsService{client: c}
	c.Agents = &AgentsService{client: c}
	c.Threads = &ThreadsService{client: c}
	c.KnowledgeBases = &KnowledgeBasesService{client: c}
	return c, nil
}

// Ping fetches API health and warns the caller, via error, when the server
// no longer supports this client version.
func (c *Client) Ping(ctx context.Context) (*Health, error) {
	var health Health
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, nil, &health, nil); err != nil {
		return nil, err
	}

	if health.MinClientVersion != "" {
		minimum, err := semver.NewVersion(health.MinClientVersion)
		if err != nil {
			c.logger.Warn().Str("min_client_version", health.MinClientVersion).
				Msg("server reported unparseable minimum client version")
			return &health, nil
		}
		current := semver.MustParse(Version)
		if current.LessThan(minimum) {
			return &health, fmt.Errorf("api: client %s is older than the server minimum %s, please upgrade",
				Version, health.MinClientVersion)
		}
	}

	return &health, nil
}

// envelope is the standard response wrapper used by every endpoint.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Error      *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do executes one API request. body, when non-nil, is JSON-encoded; the
// response envelope's data field is decoded into out when out is non-nil.
// Extra headers are set verbatim on the request.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body, out any,
	headers http.Header,
) (*Pagination, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("api: rate limiter wait: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, query, body, headers)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, data)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("api: decode response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("api: decode data: %w", err)
		}
	}
	return env.Pagination, nil
}

// newRequest builds an authenticated request for path relative to the base URL.
func (c *Client) newRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	headers http.Header,
) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	return req, nil
}

// newAPIError maps a non-2xx response to an *APIError.
func newAPIError(resp *http.Response, body []byte) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		if env.Error.Message != "" {
			apiErr.Message = env.Error.Message
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return apiErr
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// newIdempotencyKey returns a fresh ULID for deduplicating execute requests.
func newIdempotencyKey() string {
	return ulid.Make().String()
}
