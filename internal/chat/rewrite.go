// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/killerppo/N.E.K.O/internal/endpoint"
	"github.com/killerppo/N.E.K.O/internal/prompt"
)

const (
	// DefaultMaxResponseLength is the measured-length threshold above
	// which a reply is sent for condensation.
	DefaultMaxResponseLength = 200

	// DefaultRewriteTimeout bounds the rewrite call. A rewrite that
	// cannot finish in time is abandoned and the original reply kept.
	DefaultRewriteTimeout = 6 * time.Second

	// rewriteTemperature keeps the condensation conservative.
	rewriteTemperature = 0.3

	// rewriteMaxTokens caps the condensed output.
	rewriteMaxTokens = 500
)

// RewriteConfig names the secondary endpoint used to condense
// over-length replies. Empty BaseURL or APIKey fall back to nothing;
// the rewrite endpoint is configured independently of the primary.
type RewriteConfig struct {
	Model   string
	BaseURL string
	APIKey  string
}

// rewriteLongReply asks the rewrite endpoint to condense the reply.
// Every failure mode is soft: the caller keeps the original reply
// whenever ok is false.
func (s *Session) rewriteLongReply(ctx context.Context, text string) (rewritten string, ok bool) {
	if s.rewriteCfg == nil || s.rewriteCfg.Model == "" {
		s.logger.Warn("rewrite requested but not configured", "session_id", s.id)
		return "", false
	}

	system, err := prompt.RenderRewrite(text, s.maxResponseLength)
	if err != nil {
		s.logger.Warn("failed to render rewrite prompt", "session_id", s.id, "error", err)
		return "", false
	}

	client := s.newClient(endpoint.Config{
		BaseURL:     s.rewriteCfg.BaseURL,
		APIKey:      s.rewriteCfg.APIKey,
		Model:       s.rewriteCfg.Model,
		Temperature: rewriteTemperature,
	})

	rewriteCtx, cancel := context.WithTimeout(ctx, s.rewriteTimeout)
	defer cancel()

	resp, err := client.ChatWithOptions(rewriteCtx, []endpoint.ChatMessage{
		endpoint.NewSystemMessage(system),
		endpoint.NewUserMessage(prompt.RewriteKickoff),
	}, endpoint.ChatOptions{
		Temperature: rewriteTemperature,
		MaxTokens:   rewriteMaxTokens,
	})
	if err != nil {
		s.logger.Warn("rewrite call failed, keeping original reply",
			"session_id", s.id, "error", err)
		return "", false
	}

	return strings.TrimSpace(resp.GetContent()), true
}
