// SPDX-License-Identifier: Apache-2.0
package lsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodBuffer = `
function w $max(w %a, w %b) {
@entry
	%c =w csgtw %a, %b
	jnz %c, @left, @right
@left
	ret %a
@right
	ret %b
}
`

func TestAnalyzeBufferCleanSource(t *testing.T) {
	diags := AnalyzeBuffer("max.ssa", goodBuffer)
	assert.Empty(t, diags)
}

func TestAnalyzeBufferReportsParseError(t *testing.T) {
	diags := AnalyzeBuffer("bad.ssa", "function w $f() {\n@e\n%x =w\nret\n}\n")
	require.NotEmpty(t, diags)
	assert.Equal(t, "cmid-parser", *diags[0].Source)
}

func TestAnalyzeBufferReportsUndefinedTemp(t *testing.T) {
	src := `
function w $f() {
@entry
	%t =w add %ghost, 1
	ret %t
}
`
	diags := AnalyzeBuffer("undef.ssa", src)
	require.NotEmpty(t, diags)
	assert.Equal(t, "cmid-asm", *diags[0].Source)
	assert.Contains(t, diags[0].Message, "%ghost")
	assert.Equal(t, uint32(3), diags[0].Range.Start.Line, "position is 0-based")
}

func TestAnalyzeBufferReportsMissingTerminator(t *testing.T) {
	src := `
function w $f(w %c) {
@entry
	jnz %c, @a, @b
@a
	ret 1
@b
	%x =w copy 2
}
`
	diags := AnalyzeBuffer("noterm.ssa", src)
	require.NotEmpty(t, diags)
	found := false
	for _, d := range diags {
		if *d.Source == "cmid-verify" && strings.Contains(d.Message, "terminator") {
			found = true
		}
	}
	assert.True(t, found, "the verifier must flag the unterminated block")
}

func TestCollectSemanticTokensClassifiesLexemes(t *testing.T) {
	tokens := collectSemanticTokens("max.ssa", "function w $f(w %a) {\n@e\nret %a\n}\n")
	require.NotEmpty(t, tokens)

	kindAt := func(i int) string { return SemanticTokenTypes[tokens[i].TokenType] }
	assert.Equal(t, "keyword", kindAt(0), "the function keyword")
	assert.Equal(t, "type", kindAt(1), "the w return class")
	assert.Equal(t, "function", kindAt(2), "the $f global")

	kinds := make(map[string]bool)
	for i := range tokens {
		kinds[kindAt(i)] = true
	}
	assert.True(t, kinds["variable"], "temps highlight as variables")
	assert.True(t, kinds["namespace"], "labels highlight as namespaces")
}
