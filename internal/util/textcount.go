// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strings"

// UNICODE: Rune-aware counting and truncation preserve multi-byte characters.

// CountWordsAndChars returns the measured length of mixed-script text.
// Each CJK ideograph counts as one unit; the remaining text is split on
// whitespace and each token counts as one unit. "你好 world" measures 3.
func CountWordsAndChars(s string) int {
	if s == "" {
		return 0
	}

	count := 0
	var rest strings.Builder
	for _, r := range s {
		if isIdeograph(r) {
			count++
			// Ideographs also act as token separators for the
			// surrounding non-CJK text.
			rest.WriteByte(' ')
			continue
		}
		rest.WriteRune(r)
	}

	count += len(strings.Fields(rest.String()))
	return count
}

// isIdeograph reports whether r falls in the CJK Unified Ideographs block.
func isIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// TruncateRunes truncates a string to a maximum number of runes.
// This is safe for UTF-8 strings as it counts characters, not bytes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// RuneLen returns the number of runes (characters) in a string.
func RuneLen(s string) int {
	return len([]rune(s))
}
