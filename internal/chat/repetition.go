// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/killerppo/N.E.K.O/internal/util"
)

const (
	// recentReplyCapacity bounds the rolling buffer of committed replies
	// consulted for repetition.
	recentReplyCapacity = 3

	// DefaultRepetitionThreshold is the similarity score at or above
	// which two replies count as repeats.
	DefaultRepetitionThreshold = 0.8
)

// replyBuffer is a rolling window of the most recent committed replies.
type replyBuffer struct {
	entries []string
}

// add records a reply, evicting the oldest past capacity.
func (b *replyBuffer) add(reply string) {
	b.entries = append(b.entries, reply)
	if len(b.entries) > recentReplyCapacity {
		b.entries = b.entries[len(b.entries)-recentReplyCapacity:]
	}
}

// clear empties the buffer.
func (b *replyBuffer) clear() {
	b.entries = nil
}

// checkRepetition scores the new reply against the recent buffer. Two or
// more matches at or above the threshold indicate the model is stuck in
// a loop; the remediation resets the history to its system turn and
// clears the buffer so the next turn starts fresh.
func (s *Session) checkRepetition(reply string) bool {
	high := 0
	for _, prev := range s.recent.entries {
		if s.scorer.Similarity(reply, prev) >= s.repetitionThreshold {
			high++
		}
	}
	s.recent.add(reply)

	if high < 2 {
		return false
	}

	s.logger.Warn("repetitive replies detected, resetting conversation",
		"session_id", s.id, "matches", high, "reply", util.TruncateRunes(reply, 64))
	s.history.ResetToSystem()
	s.recent.clear()
	if cb := s.callbacks.OnRepetitionDetected; cb != nil {
		cb()
	}
	return true
}
