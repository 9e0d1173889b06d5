// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// RewriteKickoff is the fixed user message that starts a rewrite call;
// the actual instruction travels in the rendered system message.
const RewriteKickoff = "========请开始========"

// rewriteTemplate renders the system instruction for condensing an
// over-length reply. Measured length counts CJK ideographs individually
// and other scripts by word.
const rewriteTemplate = `你是一名回复精简助手。请将下面的原始回复压缩到{{.MaxLength}}字以内。

要求：
- 保留关键信息和原有语气
- 不要添加原始回复中没有的内容
- 直接输出改写后的文本，不要任何解释或前缀

原始回复：
{{.RawOutput}}`

var rewriteTmpl = template.Must(template.New("rewrite").Parse(rewriteTemplate))

// RenderRewrite renders the rewrite system instruction for the given
// raw reply and target maximum length.
func RenderRewrite(rawOutput string, maxLength int) (string, error) {
	var b strings.Builder
	err := rewriteTmpl.Execute(&b, struct {
		RawOutput string
		MaxLength int
	}{RawOutput: rawOutput, MaxLength: maxLength})
	if err != nil {
		return "", fmt.Errorf("failed to render rewrite prompt: %w", err)
	}
	return b.String(), nil
}
