// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates one conversation turn at a time against a
// streaming chat-completion endpoint.
//
// A Session owns the conversation history, the pending image queue, the
// recent-reply buffer, and the active endpoint config. StreamText drives
// the turn state machine: it builds the outgoing user turn (promoting to
// the vision model when images are pending), retries transient endpoint
// failures with fixed backoff, consumes the streamed reply fragment by
// fragment, applies the fence rule, optionally condenses over-length
// replies through a secondary model, and checks the committed reply for
// repetition.
//
// Sessions are not reentrant: one turn at a time, serialized by the
// caller. Interruption is cooperative — Cancel clears the responding
// flag, which the stream loop observes at fragment boundaries.
//
// # Key Types
//
//   - Session: the per-conversation orchestrator
//   - Callbacks: the event surface a host wires in
//   - RewriteConfig: the optional secondary endpoint for condensation
package chat
