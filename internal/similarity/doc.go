// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package similarity scores how alike two texts are for repetition
// detection.
//
// The Scorer interface is the pluggable collaborator the chat session
// depends on; any measure that is symmetric, bounded to [0,1], and
// returns 1.0 for identical strings satisfies the contract. The default
// implementation is a Sørensen–Dice coefficient over rune bigrams,
// which works equally well for CJK and whitespace-delimited scripts.
package similarity
