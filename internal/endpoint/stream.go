// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package endpoint

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// STREAMING: Robust SSE parsing with error handling.

// Fragment is one streamed content delta. Errors encountered mid-stream
// are delivered in-band through the Err field; the channel is closed
// afterwards.
type Fragment struct {
	Text string
	Err  error
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event's data payload from the stream.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF.
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (event:, id:, retry:, comments starting with :).
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream performs a streaming chat completion request and returns a
// channel of content fragments. The channel is closed when the stream
// finishes, fails, or the context is cancelled; abandoning the stream
// early is done by cancelling the context.
func (c *Client) ChatStream(ctx context.Context, messages []ChatMessage) (<-chan Fragment, error) {
	if !c.cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	reqBody := ChatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.cfg.Temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// PERFORMANCE: Shared streaming client with connection pooling;
	// lifetime is controlled by the caller's context.
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	fragments := make(chan Fragment, 64)
	go c.readStream(ctx, resp.Body, fragments)
	return fragments, nil
}

// readStream consumes the SSE body and forwards content deltas until the
// stream finishes or the context is cancelled.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, fragments chan<- Fragment) {
	defer close(fragments)
	defer body.Close()

	reader := NewSSEReader(body)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return
			}
			// A read error after cancellation is the abandonment
			// itself, not a stream failure.
			if ctx.Err() != nil {
				return
			}
			c.send(ctx, fragments, Fragment{Err: fmt.Errorf("read error: %w", err)})
			return
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks rather than aborting the stream.
			c.logger.Debug("skipping malformed stream chunk", "error", err)
			continue
		}

		if !c.send(ctx, fragments, Fragment{Text: chunk.content()}) {
			return
		}

		if chunk.done() {
			return
		}
	}
}

// send delivers a fragment unless the context is cancelled first.
func (c *Client) send(ctx context.Context, fragments chan<- Fragment, f Fragment) bool {
	select {
	case fragments <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
