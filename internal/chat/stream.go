// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/killerppo/N.E.K.O/internal/endpoint"
	"github.com/killerppo/N.E.K.O/internal/util"
)

// maxAttempts bounds the delivery attempts for one turn: the initial
// call plus one retry per configured delay.
const maxAttempts = 3

// =============================================================================
// TURN ENTRY POINT
// =============================================================================

// StreamText runs one full conversation turn: commit the user input,
// stream the reply through the callbacks, and commit whatever reply text
// accumulated. All failures are reported through OnConnectionError; the
// method itself never returns an error.
//
// Empty text with no pending images is a silent no-op. Empty text with
// pending images substitutes a default analysis prompt so the turn still
// carries content.
func (s *Session) StreamText(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" && !s.images.hasPending() {
		return
	}
	if text == "" {
		text = defaultImagePrompt
	}

	if s.images.hasPending() {
		s.promoteForVision()
	}
	images := s.images.drain()

	s.history.AppendUser(text, images)
	if cb := s.callbacks.OnInputTranscript; cb != nil {
		cb(text)
	}

	s.responding.Store(true)
	defer func() {
		s.responding.Store(false)
		if cb := s.callbacks.OnResponseDone; cb != nil {
			cb()
		}
	}()

	s.respond(ctx)
}

// respond drives the retry loop and commits the accumulated reply.
func (s *Session) respond(ctx context.Context) {
	if !s.history.HasUserTurn() {
		s.reportError("no user input to respond to")
		return
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reply, err := s.streamOnce(ctx)
		if err == nil {
			s.commitReply(ctx, reply)
			return
		}

		if !endpoint.IsTransient(err) {
			s.logger.Error("response failed", "session_id", s.id, "error", err)
			s.reportError(fmt.Sprintf("response failed: %v", err))
			return
		}

		if attempt == maxAttempts {
			s.logger.Error("response failed after retries", "session_id", s.id, "attempts", attempt, "error", err)
			s.reportError(fmt.Sprintf("connection failed after %d attempts: %v", attempt, err))
			return
		}

		s.logger.Warn("transient endpoint failure, retrying",
			"session_id", s.id, "attempt", attempt, "error", err)
		s.reportError(fmt.Sprintf("connection trouble, retrying (attempt %d)", attempt))

		if !s.waitRetry(ctx, attempt) {
			return
		}
	}
}

// waitRetry sleeps the backoff delay for the given attempt, honoring
// context cancellation.
func (s *Session) waitRetry(ctx context.Context, attempt int) bool {
	delay := s.retryDelays[len(s.retryDelays)-1]
	if attempt-1 < len(s.retryDelays) {
		delay = s.retryDelays[attempt-1]
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// =============================================================================
// SINGLE STREAM ATTEMPT
// =============================================================================

// streamOnce makes one streaming call and accumulates the reply, emitting
// each fragment through the callbacks. It returns whatever text
// accumulated when the stream ends, is fenced, or is interrupted; an
// error is returned only for endpoint failures before any handling of
// the reply is possible.
func (s *Session) streamOnce(ctx context.Context) (string, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fragments, err := s.client.ChatStream(streamCtx, s.history.ToEndpointMessages())
	if err != nil {
		return "", err
	}

	var reply strings.Builder
	first := true
	pipes := 0

	for frag := range fragments {
		if frag.Err != nil {
			// A partial reply from a broken stream is discarded; the
			// retry loop replays the whole turn.
			return "", frag.Err
		}

		if !s.responding.Load() {
			s.logger.Info("response interrupted", "session_id", s.id)
			break
		}

		if strings.TrimSpace(frag.Text) == "" {
			s.logger.Debug("skipping whitespace fragment", "session_id", s.id)
			continue
		}

		text, fenced := applyFence(&pipes, frag.Text)
		if text != "" {
			s.emitDelta(text, first)
			first = false
			reply.WriteString(text)
		}
		if fenced {
			s.logger.Info("output fence reached, truncating response", "session_id", s.id)
			break
		}
	}

	return reply.String(), nil
}

// applyFence scans a fragment for pipe characters, tracking the running
// count across fragments. The second pipe fences the turn: the fragment
// is truncated just before it, and pipes split across fragment
// boundaries fence exactly like adjacent ones.
func applyFence(pipes *int, fragment string) (string, bool) {
	for i, r := range fragment {
		if r != '|' {
			continue
		}
		*pipes++
		if *pipes >= 2 {
			return fragment[:i], true
		}
	}
	return fragment, false
}

// =============================================================================
// REPLY COMMIT
// =============================================================================

// commitReply records the accumulated reply in history, condensing it
// first when over-length, then runs repetition remediation. An empty
// accumulation commits nothing.
func (s *Session) commitReply(ctx context.Context, reply string) {
	if reply == "" {
		return
	}

	final := reply
	originalLen := util.CountWordsAndChars(reply)
	if s.rewriteCfg != nil && originalLen > s.maxResponseLength {
		if rewritten, ok := s.rewriteLongReply(ctx, reply); ok {
			rewrittenLen := util.CountWordsAndChars(rewritten)
			if rewrittenLen > 0 && rewrittenLen <= s.maxResponseLength {
				s.logger.Info("over-length reply condensed",
					"session_id", s.id, "original", originalLen, "rewritten", rewrittenLen)
				if cb := s.callbacks.OnResponseRewritten; cb != nil {
					cb(rewritten, originalLen, rewrittenLen)
				}
				final = rewritten
			} else {
				s.logger.Warn("rewrite result rejected, keeping original",
					"session_id", s.id, "rewritten", rewrittenLen, "max", s.maxResponseLength)
			}
		}
	}

	s.history.AppendAssistant(final)
	s.checkRepetition(final)
}
