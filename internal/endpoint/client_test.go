// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
	}
}

func TestChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL + "/v1"))
	resp, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("ping")})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.GetContent())
}

func TestChatWithOptions_Overrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 0.3, req.Temperature, 0.001)
		assert.Equal(t, 500, req.MaxTokens)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.ChatWithOptions(context.Background(), []ChatMessage{NewUserMessage("hi")}, ChatOptions{
		Temperature: 0.3,
		MaxTokens:   500,
	})
	require.NoError(t, err)
}

func TestChat_NotConfigured(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 maps to auth failed",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"bad key","code":"invalid_api_key"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAuthFailed)
			},
		},
		{
			name:   "404 maps to model not found",
			status: http.StatusNotFound,
			body:   `{"error":{"message":"no such model"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrModelNotFound)
			},
		},
		{
			name:   "429 maps to rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"slow down"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "500 maps to APIError",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"boom","code":"server_error"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
				assert.Equal(t, "server_error", apiErr.Code)
			},
		},
		{
			name:   "unparseable body still maps by status",
			status: http.StatusUnauthorized,
			body:   "not json",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAuthFailed)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient(testConfig(srv.URL))
			_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNewClient_NormalizesConfig(t *testing.T) {
	client := NewClient(Config{
		BaseURL: "https://example.com/v1/",
		APIKey:  "  spaced-key  ",
		Model:   "m",
	})
	assert.Equal(t, "https://example.com/v1", client.Config().BaseURL)
	assert.Equal(t, "spaced-key", client.Config().APIKey)
}

// fakeNetError implements net.Error for classification tests.
type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection reset" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("request failed: %w", context.Canceled), false},
		{"rate limited", fmt.Errorf("%w: slow down", ErrRateLimited), true},
		{"server error 500", &APIError{Status: 500}, true},
		{"server error 503", &APIError{Status: 503}, true},
		{"client error 400", &APIError{Status: 400}, false},
		{"auth failed", ErrAuthFailed, false},
		{"url error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("refused")}, true},
		{"net error", fmt.Errorf("read: %w", net.Error(fakeNetError{})), true},
		{"unexpected EOF", io.ErrUnexpectedEOF, true},
		{"plain EOF", io.EOF, true},
		{"generic error", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestChat_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Chat(ctx, []ChatMessage{NewUserMessage("hi")})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}
