// SPDX-License-Identifier: Apache-2.0
package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cmid/internal/ir"
)

// buildDiamond builds: entry -> (left, right) -> join -> ret, with a phi
// in join selecting between a def in left and one in right.
func buildDiamond() (*ir.Function, *ir.Temp) {
	m := ir.NewModule()
	f := m.NewFunction("f", true, ir.ClassW)
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	join := f.NewBlock("join")

	entry.Term = &ir.Terminator{Kind: ir.TermJnz, Arg: m.Interner.ConstInt(ir.ClassW, 1), True: left, False: right}

	tl := f.NewTemp(ir.ClassW)
	left.Instrs = append(left.Instrs, &ir.Instruction{Op: ir.OCopy, Cls: ir.ClassW, Dest: tl, Args: [2]ir.Value{m.Interner.ConstInt(ir.ClassW, 1)}, NArgs: 1})
	left.Term = &ir.Terminator{Kind: ir.TermJmp, True: join}

	tr := f.NewTemp(ir.ClassW)
	right.Instrs = append(right.Instrs, &ir.Instruction{Op: ir.OCopy, Cls: ir.ClassW, Dest: tr, Args: [2]ir.Value{m.Interner.ConstInt(ir.ClassW, 2)}, NArgs: 1})
	right.Term = &ir.Terminator{Kind: ir.TermJmp, True: join}

	phiDest := f.NewTemp(ir.ClassW)
	join.Phis = append(join.Phis, &ir.Phi{Dest: phiDest, Cls: ir.ClassW, Block: join, Args: []ir.PhiArg{{Block: left, Val: tl}, {Block: right, Val: tr}}})
	join.Term = &ir.Terminator{Kind: ir.TermRet, Arg: phiDest}

	return f, phiDest
}

func TestFillPredsSuccsHonorsIdenticalJnzTargets(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	entry := f.NewBlock("entry")
	target := f.NewBlock("target")
	entry.Term = &ir.Terminator{Kind: ir.TermJnz, Arg: m.Interner.ConstInt(ir.ClassW, 0), True: target, False: target}
	target.Term = &ir.Terminator{Kind: ir.TermRet}

	FillPredsSuccs(f)

	assert.Len(t, entry.Succs, 1, "identical true/false targets must contribute only one successor")
	assert.Len(t, target.Preds, 1)
}

func TestFillDominatorsDiamond(t *testing.T) {
	f, _ := buildDiamond()
	FillPredsSuccs(f)
	FillRPO(f)
	FillDominators(f)

	blocks := f.Blocks()
	entry, left, right, join := blocks[0], blocks[1], blocks[2], blocks[3]

	assert.Same(t, entry, left.IDom)
	assert.Same(t, entry, right.IDom)
	assert.Same(t, entry, join.IDom, "join's immediate dominator is entry, not left or right")
	assert.True(t, entry.Dominates(join))
	assert.False(t, left.Dominates(join))
}

func TestFillDominanceFrontierDiamond(t *testing.T) {
	f, _ := buildDiamond()
	FillPredsSuccs(f)
	FillRPO(f)
	FillDominators(f)
	FillDominanceFrontier(f)

	blocks := f.Blocks()
	left, right, join := blocks[1], blocks[2], blocks[3]

	assert.Contains(t, left.DomFrontier, join)
	assert.Contains(t, right.DomFrontier, join)
}

func TestFillUsesPhiArgumentsRecordedOnIncomingBlock(t *testing.T) {
	f, phiDest := buildDiamond()
	FillPredsSuccs(f)
	FillRPO(f)
	FillUses(f)

	assert.Len(t, phiDest.Defs, 1)
	assert.True(t, phiDest.Defs[0].IsPhi())

	blocks := f.Blocks()
	left, right := blocks[1], blocks[2]
	tl := left.Instrs[0].Dest
	tr := right.Instrs[0].Dest
	assert.Len(t, tl.Uses, 1)
	assert.True(t, tl.Uses[0].IsPhiUse())
	assert.Same(t, left, tl.Uses[0].Block)
	assert.Same(t, right, tr.Uses[0].Block)
}

func TestFillLivenessPropagatesAcrossDiamond(t *testing.T) {
	f, phiDest := buildDiamond()
	_ = phiDest
	FillPredsSuccs(f)
	FillRPO(f)
	FillUses(f)
	FillLiveness(f)

	blocks := f.Blocks()
	entry := blocks[0]
	assert.Empty(t, entry.LiveOut, "no cross-block temps live out of entry in this diamond")
}

func TestLiveIntervalsCoverDefToUse(t *testing.T) {
	f, phiDest := buildDiamond()
	res := Run(f)

	iv := res.Intervals[phiDest]
	assert.NotNil(t, iv)
	assert.LessOrEqual(t, iv.Start, iv.End)
}

func TestFillLeafAndInlineDetectsSelfCall(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, ir.ClassW)
	entry := f.NewBlock("entry")
	dest := f.NewTemp(ir.ClassW)
	entry.Instrs = append(entry.Instrs, &ir.Instruction{
		Op: ir.OCall, Cls: ir.ClassW, Dest: dest,
		Args: [2]ir.Value{m.Interner.Global("f")}, NArgs: 1,
	})
	entry.Term = &ir.Terminator{Kind: ir.TermRet, Arg: dest}

	FillLeafAndInline(f, func(sym string) *ir.Function {
		if sym == "f" {
			return f
		}
		return nil
	})

	assert.False(t, f.Leaf)
	assert.False(t, f.Inlinable, "a function that calls itself must not be marked inlinable")
}
