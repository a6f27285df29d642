// Package client provides the core iCIMS HTTP client with authentication, rate limiting,
// retries and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/icims-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icims_requests_total",
		Help: "Total iCIMS requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "icims_request_duration_seconds",
		Help:    "iCIMS request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icims_errors_total",
		Help: "Total iCIMS errors by class",
	}, []string{"class"})
)

const (
	// DefaultAPIHost is the iCIMS REST API host.
	DefaultAPIHost = "https://api.icims.com"

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"

	maxErrorBodyBytes = 64 << 10
)

// TokenSource provides the Authorization header for outgoing requests.
type TokenSource interface {
	AuthHeader(ctx context.Context) (string, error)
	Invalidate(ctx context.Context)
}

// Client is the iCIMS API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	tokens      TokenSource
	rateLimiter *ratelimit.Tracker
	retrier     *retrier
	config      Config
	logger      zerolog.Logger
	newID       func() string
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the customer API root, e.g. https://api.icims.com/customers/1234.
	BaseURL string

	// Tokens supplies the Authorization header (REQUIRED).
	Tokens TokenSource

	// UserAgent header sent with every request.
	UserAgent string

	// Redis shares rate limit state between processes. Optional.
	Redis *redis.Client

	// HTTPClient overrides the default client (Timeout is ignored when set).
	HTTPClient *http.Client
	Timeout    time.Duration

	// Retry overrides the per-error-class retry schedule when set.
	Retry *RetryConfig

	// MaxResetWait bounds how long a request waits for the rate limit window to reset
	// once the remaining budget is critical. Zero uses the rate-limit retry MaxBackoff;
	// a negative value refuses such requests with ErrRequestBlocked right away.
	MaxResetWait time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, tokens TokenSource) Config {
	return Config{
		BaseURL:   baseURL,
		Tokens:    tokens,
		UserAgent: "icims-client/0.1.0",
		Timeout:   60 * time.Second,
	}
}

// CustomerBaseURL returns the API root for a customer id on the given host.
// An empty host selects DefaultAPIHost.
func CustomerBaseURL(host, customerID string) string {
	if host == "" {
		host = DefaultAPIHost
	}
	return strings.TrimRight(host, "/") + "/customers/" + url.PathEscape(customerID)
}

// New creates a new iCIMS client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = "icims-client/0.1.0"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := log.With().Str("component", "icims-client").Logger()

	tracker := ratelimit.NewTracker(cfg.Redis, logger)
	resetWait := cfg.MaxResetWait
	if resetWait == 0 {
		resetWait = RetryConfigForErrorClass(ErrorClassRateLimit).MaxBackoff
	}
	tracker.SetMaxResetWait(resetWait)

	return &Client{
		httpClient:  httpClient,
		baseURL:     base,
		tokens:      cfg.Tokens,
		rateLimiter: tracker,
		retrier:     newRetrier(logger, cfg.Retry),
		config:      cfg,
		logger:      logger,
		newID:       uuid.NewString,
	}, nil
}

// BaseURL returns the customer API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL resolves an API path against the base URL. Absolute URLs (such as the "self" links
// returned by search endpoints) are returned unchanged.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// Do performs an authenticated request with rate limiting, retries and error
// classification. A response is returned only for status < 400; failures are *APIError
// or wrap ErrRetryExhausted / ErrRequestBlocked / ErrContextCancelled.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	route := routeLabel(endpoint)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().Str("endpoint", endpoint).Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(route, "rate_limited").Inc()
		return nil, ErrRequestBlocked
	}

	requestID := c.newID()
	reauthenticated := false

	var resp *http.Response
	attempt := func() error {
		r, err := c.send(req, requestID)
		if err != nil {
			return err
		}

		// A token rejected before its local expiry is refreshed once per request.
		if r.StatusCode == http.StatusUnauthorized && !reauthenticated {
			drainAndClose(r.Body)
			reauthenticated = true
			c.logger.Warn().
				Str("endpoint", endpoint).
				Str("request_id", requestID).
				Msg("Access token rejected, re-authenticating")
			c.tokens.Invalidate(ctx)

			r, err = c.send(req, requestID)
			if err != nil {
				return err
			}
		}

		if r.StatusCode >= 400 {
			return c.errorFromResponse(req, r)
		}

		requestsTotal.WithLabelValues(route, strconv.Itoa(r.StatusCode)).Inc()
		resp = r
		return nil
	}

	if err := c.retrier.do(ctx, attempt, classifyError); err != nil {
		c.logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Str("request_id", requestID).
			Msg("iCIMS request failed")
		return nil, err
	}

	return resp, nil
}

// send executes one attempt of req with fresh auth and tracing headers.
func (c *Client) send(req *http.Request, requestID string) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	authHeader, err := c.tokens.AuthHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	attemptReq := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		attemptReq.Body = body
	}

	attemptReq.Header.Set("Authorization", authHeader)
	attemptReq.Header.Set("User-Agent", c.config.UserAgent)
	attemptReq.Header.Set(HeaderRequestID, requestID)
	if attemptReq.Header.Get("Accept") == "" {
		attemptReq.Header.Set("Accept", "application/json")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("request_id", requestID).
		Msg("Executing iCIMS request")

	resp, err := c.httpClient.Do(attemptReq)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(routeLabel(endpoint), "network_error").Inc()
		return nil, &networkError{err: err}
	}

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	return resp, nil
}

// errorFromResponse consumes an error response and converts it to an *APIError.
func (c *Client) errorFromResponse(req *http.Request, resp *http.Response) error {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	class := classifyStatus(resp.StatusCode)

	errorsTotal.WithLabelValues(string(class)).Inc()
	requestsTotal.WithLabelValues(routeLabel(req.URL.Path), strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Warn().
		Str("endpoint", req.URL.Path).
		Int("status", resp.StatusCode).
		Str("error_class", string(class)).
		Msg("iCIMS request error")

	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: class,
		Method:     req.Method,
		Endpoint:   req.URL.Path,
		Message:    messageFromBody(resp.Status, body),
		Header:     resp.Header.Clone(),
		Body:       body,
	}
}

// routeLabel turns a request path into a metrics label by replacing numeric segments
// (customer and person ids) with {id}, so bulk runs do not create a series per record.
func routeLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" && strings.Trim(seg, "0123456789") == "" {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// networkError marks transport failures for classification.
type networkError struct {
	err error
}

func (e *networkError) Error() string { return e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

// classifyError categorizes an attempt error for retry decisions.
func classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	var netErr *networkError
	if errors.As(err, &netErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ""
		}
		return ErrorClassNetwork
	}
	// authentication and request construction failures are not retried here
	return ""
}

// NewRequest builds a request for an API path with optional query and JSON body.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.URL(path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Get performs a GET and returns the raw response. The caller closes the body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	return c.Do(req)
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// PostJSON posts body as JSON and decodes the response into out (nil discards it).
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, body, out any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, query, body)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyBytes))
	body.Close()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimiter returns the rate limit tracker (for testing).
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
