// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents a single message unit in the conversation history.
// Turns are immutable once appended; the system turn at index 0 is the
// only slot a History ever replaces in place.
type Turn struct {
	Role Role

	// Text is the turn's text content.
	Text string

	// Images holds base64 JPEG payloads for multimodal user turns,
	// ordered before the text when sent to the endpoint.
	Images []string
}

// NewSystemTurn creates a system turn.
func NewSystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Text: text}
}

// NewUserTurn creates a user turn, multimodal when images are present.
func NewUserTurn(text string, images []string) Turn {
	return Turn{Role: RoleUser, Text: text, Images: images}
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// IsMultimodal reports whether the turn carries image content.
func (t Turn) IsMultimodal() bool {
	return len(t.Images) > 0
}
