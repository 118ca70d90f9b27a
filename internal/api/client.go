// ABOUTME: HTTP client for the Sociality JSON API.
// ABOUTME: Every call goes through one pipeline: signing transport, circuit breaker, envelope decoding.
package api

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

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Sociality API host.
const DefaultBaseURL = "https://socialmediaapi-production-fc0e.up.railway.app"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client talks to the Sociality API. It never owns the credential: it reads
// it from a TokenSource on every request.
type Client struct {
	baseURL   string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	validate  *validator.Validate
	log       *zap.Logger
	timeout   time.Duration
	transport http.RoundTripper
	breakerCf BreakerConfig
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing and breaker events.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport sets the underlying round tripper the signer wraps.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithBreaker overrides the circuit breaker configuration.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breakerCf = cfg
	}
}

// NewClient creates a client for the API at baseURL. A trailing "/api" is
// stripped since every path already carries it.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:   baseURL,
		validate:  newValidator(),
		log:       zap.NewNop(),
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		breakerCf: DefaultBreakerConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = &http.Client{
		Timeout:   c.timeout,
		Transport: &signingTransport{base: c.transport, tokens: tokens},
	}
	c.breaker = newBreaker(c.breakerCf, c.log)
	return c
}

// BaseURL returns the normalized API host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// request describes one outgoing call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// getJSON performs a GET and decodes envelope data into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
	return err
}

// sendJSON performs a request with an optional JSON body.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, out any) (string, error) {
	req := request{method: method, path: path}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = body
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

// do runs req through the circuit breaker and returns the envelope message.
func (c *Client) do(ctx context.Context, req request, out any) (string, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req, out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %s %s: %w", ErrTransport, req.method, req.path, err)
		}
		return "", err
	}
	msg, _ := res.(string)
	return msg, nil
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) (string, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+"/api"+r.path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if len(r.query) > 0 {
		req.URL.RawQuery = r.query.Encode()
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s %s: %w", r.method, r.path, ctxErr)
		}
		return "", fmt.Errorf("%w: %s %s: %w", ErrTransport, r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("reading %s %s: %w", r.method, r.path, ctxErr)
		}
		return "", fmt.Errorf("%w: reading %s %s: %w", ErrTransport, r.method, r.path, err)
	}
	c.log.Debug("request done",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(data)) > 0 {
		decodeErr = json.Unmarshal(data, &env)
	}

	if resp.StatusCode >= 400 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", &APIError{StatusCode: resp.StatusCode, Method: r.method, Path: r.path, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return "", &APIError{StatusCode: resp.StatusCode, Method: r.method, Path: r.path, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return env.Message, nil
}

// pageQuery builds the page/limit query shared by list endpoints.
func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
