// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyFlagsMissingTerminator(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", false, ClassW)
	f.NewBlock("entry")

	errs := Verify(f)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no terminator")
}

func TestVerifyFlagsAllocOutsideEntry(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", false, ClassW)
	entry := f.NewBlock("entry")
	other := f.NewBlock("other")
	entry.Term = &Terminator{Kind: TermJmp, True: other}
	other.Term = &Terminator{Kind: TermRet}
	other.Instrs = []*Instruction{{
		Op: OAlloc4, Cls: ClassL, Dest: f.NewTemp(ClassL),
		Args: [2]Value{m.Interner.ConstInt(ClassL, 4)}, NArgs: 1,
	}}

	errs := Verify(f)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "allocation outside entry")
}

func TestVerifyFlagsPhiArityMismatch(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", false, ClassW)
	entry := f.NewBlock("entry")
	join := f.NewBlock("join")
	entry.Term = &Terminator{Kind: TermJmp, True: join}
	join.Term = &Terminator{Kind: TermRet}
	join.Preds = []*Block{entry}
	join.Phis = []*Phi{{
		Dest: f.NewTemp(ClassW), Cls: ClassW, Block: join,
		Args: []PhiArg{
			{Block: entry, Val: m.Interner.ConstInt(ClassW, 1)},
			{Block: entry, Val: m.Interner.ConstInt(ClassW, 2)},
		},
	}}

	errs := Verify(f)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "predecessors")
}

func TestVerifyFlagsPhiInEntry(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", false, ClassW)
	entry := f.NewBlock("entry")
	entry.Term = &Terminator{Kind: TermRet}
	entry.Phis = []*Phi{{Dest: f.NewTemp(ClassW), Cls: ClassW, Block: entry}}

	errs := Verify(f)
	assert.NotEmpty(t, errs)
}

func TestVerifySingleDefCatchesDoubleDef(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", false, ClassW)
	entry := f.NewBlock("entry")
	entry.Term = &Terminator{Kind: TermRet}
	tmp := f.NewTemp(ClassW)
	tmp.Defs = []Def{
		{Instr: &Instruction{Op: OCopy}, Block: entry},
		{Instr: &Instruction{Op: OCopy}, Block: entry},
	}

	errs := VerifySingleDef(f)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "2 defs")
}
