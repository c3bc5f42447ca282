// Package anilist provides the core AniList GraphQL client with rate
// limiting, retry with backoff and error classification.
package anilist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/animetrics/anilist-crawler/pkg/ratelimit"
)

// Prometheus metrics for AniList client operations.
var (
	anilistRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anilist_requests_total",
		Help: "Total AniList requests by HTTP status",
	}, []string{"status"})

	anilistRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anilist_request_duration_seconds",
		Help:    "AniList request duration in seconds, including retries",
		Buckets: []float64{0.5, 1, 2, 5, 30, 60, 300, 600},
	})

	anilistErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anilist_errors_total",
		Help: "Total AniList errors by class",
	}, []string{"class"})
)

// DefaultEndpoint is the public AniList GraphQL endpoint.
const DefaultEndpoint = "https://graphql.anilist.co"

// maxBodyDiagnostic caps the response body length carried in errors and logs.
const maxBodyDiagnostic = 500

// Config holds the client configuration.
type Config struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string

	// UserAgent identifies the crawler to the upstream.
	UserAgent string

	// HTTPTimeout bounds a single HTTP round trip.
	HTTPTimeout time.Duration

	// MinRequestInterval is the minimum spacing between outbound requests.
	// AniList enforces a strict global budget, so this defaults to 1s.
	MinRequestInterval time.Duration

	// PerPage is the page size for completers pagination.
	PerPage int

	// PagesPerQuery is the pagination window: how many pages are batched
	// into one completers request.
	PagesPerQuery int

	// Retry configures the backoff behavior for transient failures.
	Retry RetryConfig
}

// DefaultConfig returns a configuration matching the upstream's published
// limits: one request per second, 50 entries per page, 5-page windows.
func DefaultConfig() Config {
	return Config{
		Endpoint:           DefaultEndpoint,
		UserAgent:          "anilist-crawler/0.1.0",
		HTTPTimeout:        30 * time.Second,
		MinRequestInterval: time.Second,
		PerPage:            50,
		PagesPerQuery:      5,
		Retry:              DefaultRetryConfig(),
	}
}

// Client is the AniList GraphQL client. All network access of the crawler
// funnels through Execute, which consults the rate limiter before every
// call. The limiter is scoped to the client so independent crawl runs do
// not interfere.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new AniList client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}
	if cfg.PerPage <= 0 {
		return nil, fmt.Errorf("per page must be positive (got %d)", cfg.PerPage)
	}
	if cfg.PagesPerQuery <= 0 {
		return nil, fmt.Errorf("pages per query must be positive (got %d)", cfg.PagesPerQuery)
	}

	logger := log.With().Str("component", "anilist-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter: ratelimit.New(cfg.MinRequestInterval),
		config:  cfg,
		logger:  logger,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Response is a decoded GraphQL response body. Data maps alias names (u{i},
// p{page}, MediaListCollection) to their raw payloads.
type Response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []GraphQLError             `json:"errors"`
}

// Execute performs one logical GraphQL request with rate limiting, error
// classification and retry. Private/not-found classifications short-circuit
// the retry loop; everything else is retried with linear backoff until the
// attempt budget is exhausted.
func (c *Client) Execute(ctx context.Context, doc Document) (*Response, error) {
	start := time.Now()
	defer func() {
		anilistRequestDuration.Observe(time.Since(start).Seconds())
	}()

	var resp *Response
	err := c.retryWithBackoff(ctx, func() error {
		r, err := c.attempt(ctx, doc)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// attempt performs a single rate-limited request and classifies the outcome.
func (c *Client) attempt(ctx context.Context, doc Document) (*Response, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	payload, err := json.Marshal(map[string]any{
		"query":     doc.Query,
		"variables": doc.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		anilistRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{
			Class:   ErrorClassTransport,
			Message: "request failed",
			Err:     err,
		}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		anilistRequestsTotal.WithLabelValues("read_error").Inc()
		return nil, &APIError{
			Class:      ErrorClassTransport,
			StatusCode: httpResp.StatusCode,
			Message:    "read response body",
			Headers:    httpResp.Header,
			Err:        err,
		}
	}

	anilistRequestsTotal.WithLabelValues(fmt.Sprintf("%d", httpResp.StatusCode)).Inc()

	// AniList reports private/not-found users as a 404 with a GraphQL
	// error body. A data condition, not a transient failure: fail fast.
	if httpResp.StatusCode == http.StatusNotFound {
		if terminal := classifyUserError(httpResp, body, doc.Variables); terminal != nil {
			return nil, terminal
		}
	}

	if httpResp.StatusCode >= 400 {
		return nil, &APIError{
			Class:      ErrorClassTransport,
			StatusCode: httpResp.StatusCode,
			Message:    httpResp.Status,
			Body:       truncateBody(body),
			Headers:    httpResp.Header,
		}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{
			Class:      ErrorClassTransport,
			StatusCode: httpResp.StatusCode,
			Message:    "malformed response body",
			Body:       truncateBody(body),
			Headers:    httpResp.Header,
			Err:        err,
		}
	}

	return &resp, nil
}

// classifyUserError inspects a 404 body for the upstream's private/not-found
// markers. Returns nil when the 404 is not one of those, in which case the
// caller treats it as a generic transport failure.
func classifyUserError(httpResp *http.Response, body []byte, vars map[string]any) *APIError {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Errors) == 0 {
		return nil
	}

	var class ErrorClass
	message := resp.Errors[0].Message
	switch message {
	case "Private User":
		class = ErrorClassPrivate
	case "User not found":
		class = ErrorClassNotFound
	default:
		return nil
	}

	return &APIError{
		Class:      class,
		StatusCode: httpResp.StatusCode,
		Message:    message,
		Users:      batchMembers(vars),
		Body:       truncateBody(body),
		Headers:    httpResp.Header,
	}
}

// batchMembers extracts the users a request was issued for from its variable
// bindings. User variables are named username{i} or id{i}; the upstream
// reports one error for the whole request, so every member is named.
func batchMembers(vars map[string]any) []string {
	var members []string
	for name, value := range vars {
		if strings.HasPrefix(name, "username") || strings.HasPrefix(name, "id") {
			members = append(members, fmt.Sprintf("%v", value))
		}
	}
	sort.Strings(members)
	return members
}

// truncateBody caps a response body for diagnostics.
func truncateBody(body []byte) string {
	if len(body) > maxBodyDiagnostic {
		return string(body[:maxBodyDiagnostic]) + "..."
	}
	return string(body)
}
