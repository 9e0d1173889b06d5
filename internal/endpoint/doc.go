// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package endpoint implements the client for OpenAI-compatible
// chat-completion services.
//
// The client speaks the /chat/completions wire format: a JSON request
// carrying an ordered message list, answered either by a single JSON
// response or by an SSE stream of incremental deltas terminated with
// a [DONE] marker. Messages may carry plain text or multimodal content
// (image parts followed by a text part).
//
// The client performs no retries of its own; callers own the retry
// policy and use IsTransient to classify failures. Transient failures
// are connectivity errors, server overload (5xx), and rate limiting.
//
// # Key Types
//
//   - Config: one endpoint identity (base URL, credential, model)
//   - Client: request issuing, streaming, and error mapping
//   - ChatMessage: a single wire message, text or multimodal
//   - Fragment: one streamed content delta
package endpoint
