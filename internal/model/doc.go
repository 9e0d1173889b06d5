// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation turn log.
//
// A History is the ordered sequence of Turns a session commits and sends
// to the completion endpoint. If the history is non-empty, index 0 is the
// system turn; appends never move it, and resets either truncate to it or
// empty the log entirely.
//
// # Key Types
//
//   - Turn: one message unit, tagged system/user/assistant
//   - History: the ordered turn log owned by a single session
package model
