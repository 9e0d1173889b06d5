// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt holds the prompt templates sent to secondary models.
//
// Currently the only template is the rewrite instruction used to
// condense over-length replies; it is parameterized by the raw reply
// text and the target maximum length.
package prompt
