// SPDX-License-Identifier: Apache-2.0
package lsp

import (
	"cmid/internal/asm"
	"cmid/internal/token"
)

// SemanticToken represents a single LSP semantic token entry.
// Line and StartChar are 0-based positions; TokenType is an index into
// SemanticTokenTypes; TokenModifiers is a bitmask over
// SemanticTokenModifiers.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// collectSemanticTokens lexes the buffer and classifies each lexeme.
// Classification works on the raw token stream rather than the parse
// tree so highlighting still works while the buffer is mid-edit and
// unparseable.
func collectSemanticTokens(path, source string) []SemanticToken {
	lx, err := asm.AsmLexer.LexString(path, source)
	if err != nil {
		return nil
	}
	symbols := asm.AsmLexer.Symbols()
	names := make(map[int]string, len(symbols))
	for name, t := range symbols {
		names[int(t)] = name
	}

	var tokens []SemanticToken
	for {
		t, err := lx.Next()
		if err != nil || t.EOF() {
			break
		}
		kind, ok := classify(names[int(t.Type)], t.Value)
		if !ok {
			continue
		}
		tokens = append(tokens, SemanticToken{
			Line:      uint32(t.Pos.Line - 1),
			StartChar: uint32(t.Pos.Column - 1),
			Length:    uint32(len(t.Value)),
			TokenType: indexOf(kind, SemanticTokenTypes),
		})
	}
	return tokens
}

// classify maps one lexer token to a semantic token type, using the
// keyword table to separate reserved words from opcode mnemonics.
func classify(lexKind, value string) (string, bool) {
	switch lexKind {
	case "Temp":
		return "variable", true
	case "Label":
		return "namespace", true
	case "Global":
		return "function", true
	case "Integer", "Float":
		return "number", true
	case "Comment":
		return "comment", true
	case "Ident":
		switch token.LookupIdent(value) {
		case token.IDENT:
			return "operator", true // opcode mnemonics
		case token.TYPEW, token.TYPEL, token.TYPES, token.TYPEX:
			return "type", true
		default:
			return "keyword", true
		}
	default:
		return "", false
	}
}

// indexOf returns the index of a string in a list, or -1 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
