// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// imageQueue stages image payloads awaiting attachment to the next user
// turn. The queue is drained unconditionally when the turn is built, so
// images never accumulate across turns.
type imageQueue struct {
	pending []string
}

// enqueue appends a payload; empty payloads are rejected as a no-op.
func (q *imageQueue) enqueue(payload string) bool {
	if payload == "" {
		return false
	}
	q.pending = append(q.pending, payload)
	return true
}

// hasPending reports whether any images are staged.
func (q *imageQueue) hasPending() bool {
	return len(q.pending) > 0
}

// size returns the number of staged images.
func (q *imageQueue) size() int {
	return len(q.pending)
}

// drain returns the staged images and clears the queue.
func (q *imageQueue) drain() []string {
	out := q.pending
	q.pending = nil
	return out
}
