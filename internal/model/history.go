// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/killerppo/N.E.K.O/internal/endpoint"
)

// =============================================================================
// HISTORY TYPE
// =============================================================================

// History is the ordered turn log owned by a single session. It is not
// safe for concurrent use; the owning session accesses it only from the
// active turn's control flow.
type History struct {
	turns []Turn
}

// NewHistory creates a history holding the sole system turn.
func NewHistory(systemInstructions string) *History {
	return &History{turns: []Turn{NewSystemTurn(systemInstructions)}}
}

// =============================================================================
// MUTATION
// =============================================================================

// UpdateSystemInstructions replaces turn 0 in place if it is a system
// turn. A history without a leading system turn is left unchanged.
func (h *History) UpdateSystemInstructions(text string) {
	if len(h.turns) > 0 && h.turns[0].Role == RoleSystem {
		h.turns[0] = NewSystemTurn(text)
	}
}

// AppendUser appends a user turn, multimodal when images are present.
func (h *History) AppendUser(text string, images []string) {
	h.turns = append(h.turns, NewUserTurn(text, images))
}

// AppendAssistant appends an assistant turn.
func (h *History) AppendAssistant(text string) {
	h.turns = append(h.turns, NewAssistantTurn(text))
}

// AppendSystem appends an ad-hoc system turn. The system slot at index 0
// is unaffected.
func (h *History) AppendSystem(text string) {
	h.turns = append(h.turns, NewSystemTurn(text))
}

// ResetToSystem truncates the history to just the leading system turn,
// or empties it if there is none.
func (h *History) ResetToSystem() {
	if len(h.turns) > 0 && h.turns[0].Role == RoleSystem {
		h.turns = h.turns[:1]
		return
	}
	h.turns = nil
}

// Clear drops every turn, including the system slot.
func (h *History) Clear() {
	h.turns = nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns the ordered turn log.
func (h *History) Turns() []Turn {
	return h.turns
}

// HasUserTurn reports whether the history contains at least one user turn.
func (h *History) HasUserTurn() bool {
	for _, t := range h.turns {
		if t.Role == RoleUser {
			return true
		}
	}
	return false
}

// LastAssistantText returns the text of the most recent assistant turn,
// or empty string if there is none.
func (h *History) LastAssistantText() string {
	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].Role == RoleAssistant {
			return h.turns[i].Text
		}
	}
	return ""
}

// =============================================================================
// ENDPOINT CONVERSION
// =============================================================================

// ToEndpointMessages converts the history to the chat-completions wire
// format, exactly one message per committed turn.
func (h *History) ToEndpointMessages() []endpoint.ChatMessage {
	messages := make([]endpoint.ChatMessage, 0, len(h.turns))
	for _, t := range h.turns {
		switch {
		case t.Role == RoleUser && t.IsMultimodal():
			messages = append(messages, endpoint.NewMultimodalUserMessage(t.Images, t.Text))
		case t.Role == RoleUser:
			messages = append(messages, endpoint.NewUserMessage(t.Text))
		case t.Role == RoleAssistant:
			messages = append(messages, endpoint.NewAssistantMessage(t.Text))
		default:
			messages = append(messages, endpoint.NewSystemMessage(t.Text))
		}
	}
	return messages
}
