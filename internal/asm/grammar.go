// SPDX-License-Identifier: Apache-2.0

// Package asm assembles the textual IR syntax into ir.Module values: a
// participle grammar over the sigil-prefixed token stream, plus a
// lowering walk that drives ir.Builder so constant folding and
// terminator idempotence happen exactly where the builder defines them.
package asm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

type Program struct {
	Pos   lexer.Position
	Decls []*Decl `Newline* ( @@ Newline* )*`
}

type Decl struct {
	Pos    lexer.Position
	Export bool     `@"export"? Newline*`
	Data   *DataDef `( @@`
	Func   *FuncDef `| @@ )`
}

type DataDef struct {
	Pos   lexer.Position
	Name  string      `"data" @Global`
	Align int         `"=" "align" @Integer`
	Items []*DataItem `"{" ( @@ ( "," @@ )* )? "}"`
}

type DataItem struct {
	Pos  lexer.Position
	Zero *int     `  "z" @Integer`
	Cls  string   `| @("w" | "l" | "s")`
	Val  *Operand `  @@`
}

type FuncDef struct {
	Pos    lexer.Position
	Ret    string       `"function" @("w" | "l" | "s" | "x")?`
	Name   string       `@Global`
	Params []*Param     `"(" ( @@ ( "," @@ )* )? ")"`
	Blocks []*BlockNode `"{" Newline+ @@* "}"`
}

type Param struct {
	Pos  lexer.Position
	Cls  string `@("w" | "l" | "s")`
	Name string `@Temp`
}

type BlockNode struct {
	Pos   lexer.Position
	Label string  `@Label Newline+`
	Stmts []*Stmt `@@*`
}

// Stmt is one line of a block body. Every variant is newline-terminated;
// the statement kinds are disambiguated by their leading tokens (a phi
// and a dest-carrying instruction differ only at the mnemonic, which the
// parser's lookahead covers).
type Stmt struct {
	Pos  lexer.Position
	Phi  *PhiStmt  `( @@`
	Jmp  *JmpStmt  `| @@`
	Jnz  *JnzStmt  `| @@`
	Ret  *RetStmt  `| @@`
	Inst *InstStmt `| @@ ) Newline+`
}

type PhiStmt struct {
	Pos  lexer.Position
	Dest string     `@Temp`
	Cls  string     `"=" @("w" | "l" | "s")`
	Args []*PhiPair `"phi" @@ ( "," @@ )*`
}

type PhiPair struct {
	Pos   lexer.Position
	Block string   `@Label`
	Val   *Operand `@@`
}

type InstStmt struct {
	Pos  lexer.Position
	Dest *DestClause `@@?`
	Op   string      `@Ident`
	Args []*Operand  `( @@ ( "," @@ )* )?`
}

type DestClause struct {
	Pos  lexer.Position
	Name string `@Temp`
	Cls  string `"=" @("w" | "l" | "s" | "x")`
}

type JmpStmt struct {
	Pos    lexer.Position
	Target string `"jmp" @Label`
}

type JnzStmt struct {
	Pos   lexer.Position
	Cond  *Operand `"jnz" @@`
	True  string   `"," @Label`
	False string   `"," @Label`
}

type RetStmt struct {
	Pos lexer.Position
	Ret string   `@"ret"`
	Val *Operand `@@?`
}

type Operand struct {
	Pos    lexer.Position
	Temp   *string `  @Temp`
	Global *string `| @Global`
	Float  *string `| @Float`
	Int    *string `| @Integer`
}
