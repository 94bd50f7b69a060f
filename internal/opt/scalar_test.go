// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cmid/internal/analysis"
	"cmid/internal/ir"
)

func TestLocalPropagateChasesCopyChain(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	b := f.NewBlock("entry")
	x := f.NewTemp(ir.ClassW)
	y := f.NewTemp(ir.ClassW)
	b.Instrs = []*ir.Instruction{
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: x, Args: [2]ir.Value{m.Interner.ConstInt(ir.ClassW, 5)}, NArgs: 1},
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: y, Args: [2]ir.Value{x}, NArgs: 1},
	}
	b.Term = &ir.Terminator{Kind: ir.TermRet, Arg: y}

	changed := LocalPropagate(f, m.Interner)
	assert.True(t, changed)
	c, ok := b.Term.Arg.(*ir.ConstBits)
	assert.True(t, ok, "local propagation should chase the copy chain through to the constant")
	assert.Equal(t, int64(5), c.Int())
}

func TestLocalPropagateFoldsConstantJnzToJmp(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	b := f.NewBlock("entry")
	thenB := f.NewBlock("then")
	elseB := f.NewBlock("else")
	cond := f.NewTemp(ir.ClassW)
	b.Instrs = []*ir.Instruction{
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: cond, Args: [2]ir.Value{m.Interner.ConstInt(ir.ClassW, 1)}, NArgs: 1},
	}
	b.Term = &ir.Terminator{Kind: ir.TermJnz, Arg: cond, True: thenB, False: elseB}

	LocalPropagate(f, m.Interner)

	assert.Equal(t, ir.TermJmp, b.Term.Kind)
	assert.Same(t, thenB, b.Term.True)
}

func TestGlobalCopyPropagateRewritesEveryUseKind(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	entry := f.NewBlock("entry")
	join := f.NewBlock("join")

	src := f.NewTemp(ir.ClassW)
	cp := f.NewTemp(ir.ClassW)
	entry.Instrs = []*ir.Instruction{
		{Op: ir.OAdd, Cls: ir.ClassW, Dest: src, Args: [2]ir.Value{m.Interner.ConstInt(ir.ClassW, 1), m.Interner.ConstInt(ir.ClassW, 2)}, NArgs: 2},
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: cp, Args: [2]ir.Value{src}, NArgs: 1},
	}
	entry.Term = &ir.Terminator{Kind: ir.TermJmp, True: join}

	user := f.NewTemp(ir.ClassW)
	join.Phis = []*ir.Phi{{Dest: user, Cls: ir.ClassW, Block: join, Args: []ir.PhiArg{{Block: entry, Val: cp}}}}
	join.Instrs = []*ir.Instruction{
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: f.NewTemp(ir.ClassW), Args: [2]ir.Value{cp}, NArgs: 1},
	}
	join.Term = &ir.Terminator{Kind: ir.TermRet, Arg: cp}

	analysis.FillPredsSuccs(f)
	analysis.FillUses(f)
	changed := GlobalCopyPropagate(f)
	assert.True(t, changed)

	assert.Same(t, src, join.Phis[0].Args[0].Val, "phi argument must be rewritten to the copy's source")
	assert.Same(t, src, join.Instrs[0].Args[0])
	assert.Same(t, src, join.Term.Arg, "terminator argument must be rewritten too")
}

func TestGlobalCopyPropagateIsIdempotent(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	entry := f.NewBlock("entry")
	src := f.NewTemp(ir.ClassW)
	cp := f.NewTemp(ir.ClassW)
	entry.Instrs = []*ir.Instruction{
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: src, Args: [2]ir.Value{m.Interner.ConstInt(ir.ClassW, 3)}, NArgs: 1},
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: cp, Args: [2]ir.Value{src}, NArgs: 1},
	}
	entry.Term = &ir.Terminator{Kind: ir.TermRet, Arg: cp}

	analysis.FillPredsSuccs(f)
	analysis.FillUses(f)
	GlobalCopyPropagate(f)

	analysis.FillUses(f)
	changed := GlobalCopyPropagate(f)
	assert.False(t, changed, "a second propagation pass must find every use already rewritten")
}

func TestLocalPropagateCollapsesSingleArgPhi(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	entry := f.NewBlock("entry")
	only := f.NewBlock("only")
	entry.Term = &ir.Terminator{Kind: ir.TermJmp, True: only}

	dest := f.NewTemp(ir.ClassW)
	user := f.NewTemp(ir.ClassW)
	only.Phis = []*ir.Phi{{Dest: dest, Cls: ir.ClassW, Block: only,
		Args: []ir.PhiArg{{Block: entry, Val: m.Interner.ConstInt(ir.ClassW, 9)}}}}
	only.Instrs = []*ir.Instruction{
		{Op: ir.OCopy, Cls: ir.ClassW, Dest: user, Args: [2]ir.Value{dest}, NArgs: 1},
	}
	only.Term = &ir.Terminator{Kind: ir.TermRet, Arg: user}

	changed := LocalPropagate(f, m.Interner)
	assert.True(t, changed)
	c, ok := only.Instrs[0].Args[0].(*ir.ConstBits)
	assert.True(t, ok, "a single-argument phi acts as a copy of its one incoming value")
	assert.Equal(t, int64(9), c.Int())
}
