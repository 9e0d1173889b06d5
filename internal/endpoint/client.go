// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package endpoint

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the chat-completions API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests.
	// No timeout; lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common endpoint errors.
var (
	// ErrNotConfigured indicates the endpoint base URL or model is not set.
	ErrNotConfigured = errors.New("completion endpoint not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// APIError represents an error response from the completion endpoint.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("endpoint error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("endpoint error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// CONFIG
// =============================================================================

// Config identifies one chat-completions endpoint.
type Config struct {
	// BaseURL is the API root, e.g. "https://openrouter.ai/api/v1".
	BaseURL string

	// APIKey is the bearer credential. Empty means unauthenticated.
	APIKey string

	// Model is the model identifier sent with every request.
	Model string

	// Temperature is the sampling temperature for the main call.
	Temperature float64

	// Stream selects SSE streaming for the main call.
	Stream bool
}

// IsConfigured reports whether the config names an endpoint and model.
func (c Config) IsConfigured() bool {
	return c.BaseURL != "" && c.Model != ""
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues chat-completion requests against a single endpoint config.
// It performs no retries; callers classify failures with IsTransient and
// own the retry policy.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

// ChatOptions override per-call request parameters.
type ChatOptions struct {
	// Temperature overrides the config temperature when non-zero.
	Temperature float64

	// MaxTokens bounds the completion size when non-zero.
	MaxTokens int
}

// NewClient creates a client for the given endpoint config.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: Config{
			BaseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
			APIKey:      strings.TrimSpace(cfg.APIKey),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Stream:      cfg.Stream,
		},
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger used for request/response logging.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithRateLimit enables client-side request pacing.
func (c *Client) WithRateLimit(limit rate.Limit, burst int) *Client {
	c.limiter = rate.NewLimiter(limit, burst)
	return c
}

// WithTimeout sets the per-request timeout for non-streaming calls.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// Config returns the endpoint config the client was built from.
func (c *Client) Config() Config {
	return c.cfg
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// =============================================================================
// NON-STREAMING CHAT
// =============================================================================

// Chat performs a single non-streaming chat completion request using the
// client's configured temperature.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (*ChatResponse, error) {
	return c.ChatWithOptions(ctx, messages, ChatOptions{})
}

// ChatWithOptions performs a single non-streaming chat completion request
// with per-call overrides.
func (c *Client) ChatWithOptions(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResponse, error) {
	if !c.cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	temperature := c.cfg.Temperature
	if opts.Temperature != 0 {
		temperature = opts.Temperature
	}

	reqBody := ChatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Stream:      false,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.completionsURL(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// completionsURL returns the chat completions URL for the endpoint.
func (c *Client) completionsURL() string {
	return c.cfg.BaseURL + "/chat/completions"
}

// pace applies the client-side rate limiter, if configured.
func (c *Client) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// setHeaders sets the required headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "neko/0.1.0")
}

// logResponse logs an API response with duration.
// Secure logging: only status code and duration, never headers or body.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	c.logger.Debug("endpoint response",
		"status", resp.StatusCode,
		"duration", duration,
		"model", c.cfg.Model,
	)
}

// readResponse reads the response body with a size limit.
//
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, apiErr.Error.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, apiErr.Error.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error.Message)
		default:
			return &APIError{
				Code:    apiErr.Error.Code,
				Message: apiErr.Error.Message,
				Status:  statusCode,
			}
		}
	}

	// Fallback for unparseable error responses.
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{
			Message: strings.TrimSpace(string(body)),
			Status:  statusCode,
		}
	}
}

// =============================================================================
// TRANSIENT-ERROR CLASSIFICATION
// =============================================================================

// IsTransient reports whether an endpoint failure is likely to succeed on
// retry: connectivity failures, server overload (5xx), and rate limiting.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}

	// Connectivity failures surface as url.Error or net.Error wrappers,
	// or as truncated reads on a dropped stream.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	return false
}
