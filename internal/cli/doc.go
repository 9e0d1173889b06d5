// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive terminal chat loop.
//
// The loop reads user input line by line, streams the assistant reply to
// stdout as it arrives, and supports a small set of slash commands for
// session control (clearing history, staging images, inspecting the
// active model). Ctrl-C during a streaming reply interrupts it
// cooperatively; at the prompt it aborts the current line.
package cli
