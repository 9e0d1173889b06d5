// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides text helpers shared across the application.
//
// The central helper is CountWordsAndChars, the mixed-script length
// measure used to decide when an assistant reply is over-length: each
// CJK ideograph counts as one unit and each whitespace-delimited token
// of the remaining text counts as one unit.
//
// # Key Functions
//
//   - CountWordsAndChars: mixed-script word/character count
//   - TruncateRunes: rune-aware truncation for previews and logs
package util
