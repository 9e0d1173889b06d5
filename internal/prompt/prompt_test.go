// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRewrite(t *testing.T) {
	rendered, err := RenderRewrite("这是一段需要精简的很长的回复。", 200)
	require.NoError(t, err)

	assert.Contains(t, rendered, "200")
	assert.Contains(t, rendered, "这是一段需要精简的很长的回复。")
}

func TestRenderRewrite_TextNotEscaped(t *testing.T) {
	raw := `quotes "and" <angle> brackets & ampersands`
	rendered, err := RenderRewrite(raw, 50)
	require.NoError(t, err)

	// text/template must pass the reply through verbatim.
	assert.Contains(t, rendered, raw)
}

func TestRewriteKickoff(t *testing.T) {
	assert.NotEmpty(t, RewriteKickoff)
}
