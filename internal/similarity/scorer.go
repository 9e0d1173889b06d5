// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package similarity

// Scorer measures how alike two texts are. Implementations must be
// symmetric, return values in [0,1], and return 1.0 for identical
// strings.
type Scorer interface {
	Similarity(a, b string) float64
}

// DiceScorer scores text similarity with the Sørensen–Dice coefficient
// over rune bigrams. Bigrams over runes rather than bytes keep the
// measure meaningful for CJK text, where nearly every character is
// multi-byte.
type DiceScorer struct{}

// Similarity implements Scorer.
func (DiceScorer) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ba, na := bigrams(a)
	bb, nb := bigrams(b)
	if na == 0 || nb == 0 {
		// At least one input is shorter than a bigram; the only
		// non-zero case (equal strings) was handled above.
		return 0.0
	}

	overlap := 0
	for gram, count := range ba {
		if other := bb[gram]; other > 0 {
			if other < count {
				overlap += other
			} else {
				overlap += count
			}
		}
	}

	return 2.0 * float64(overlap) / float64(na+nb)
}

// bigrams returns the multiset of rune bigrams in s and its total size.
func bigrams(s string) (map[string]int, int) {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil, 0
	}
	grams := make(map[string]int, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams, len(runes) - 1
}
