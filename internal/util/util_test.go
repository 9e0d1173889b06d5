// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "testing"

// =============================================================================
// MIXED-SCRIPT COUNTING TESTS
// =============================================================================

func TestCountWordsAndChars(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \t\n", 0},
		{"single english word", "hello", 1},
		{"english words", "hello world", 2},
		{"punctuation stays attached", "don't stop now", 3},
		{"chinese only", "你好", 2},
		{"chinese sentence", "请分析这些图片", 7},
		{"mixed", "你好 world", 3},
		{"cjk splits english", "我们test了", 4},
		{"cjk adjacent english both sides", "abc中def", 3},
		{"extra whitespace", "  hello   world  ", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := CountWordsAndChars(tc.input)
			if result != tc.expected {
				t.Errorf("CountWordsAndChars(%q) = %d, want %d",
					tc.input, result, tc.expected)
			}
		})
	}
}

// =============================================================================
// TRUNCATION TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		input    string
		maxRunes int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"hello", 5, "hello"},
		{"", 5, ""},
		{"hello world", 0, ""},
		{"abcd", 3, "abc"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := TruncateRunes(tc.input, tc.maxRunes)
			if result != tc.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q",
					tc.input, tc.maxRunes, result, tc.expected)
			}
		})
	}
}

func TestTruncateRunes_UTF8Safe(t *testing.T) {
	result := TruncateRunes("你好世界你好世界", 5)
	if RuneLen(result) > 5 {
		t.Errorf("TruncateRunes result %q has %d runes, want <= 5",
			result, RuneLen(result))
	}
}

func TestRuneLen(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"", 0},
		{"日本語", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if result := RuneLen(tc.input); result != tc.expected {
				t.Errorf("RuneLen(%q) = %d, want %d", tc.input, result, tc.expected)
			}
		})
	}
}
