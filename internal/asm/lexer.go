// SPDX-License-Identifier: Apache-2.0
package asm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// AsmLexer tokenizes the textual IR assembly: sigil-prefixed names
// (%temp, @label, $global), numeric literals (floats carry the s_
// prefix), opcode mnemonics, and punctuation.
var AsmLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `#[^\n]*`},

		// Sigil-prefixed names
		{Name: "Temp", Pattern: `%[a-zA-Z_][a-zA-Z0-9_.]*`},
		{Name: "Label", Pattern: `@[a-zA-Z_][a-zA-Z0-9_.]*`},
		{Name: "Global", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_.]*`},

		// Float literals (order matters: before Ident so the s_ prefix
		// doesn't lex as an identifier)
		{Name: "Float", Pattern: `s_-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?`},

		// Keywords, type tags, and opcode mnemonics
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

		// Integer literals
		{Name: "Integer", Pattern: `-?[0-9]+`},

		// Punctuation
		{Name: "Punctuation", Pattern: `[{}(),=]`},

		// Newlines terminate statements; all other whitespace is elided
		{Name: "Newline", Pattern: `\n+`},
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
	},
})
