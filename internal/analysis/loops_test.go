// SPDX-License-Identifier: Apache-2.0
package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cmid/internal/ir"
)

// buildSimpleLoop builds: entry -> header <-> latch, header -> exit, a
// single-back-edge natural loop with body {header, latch}.
func buildSimpleLoop() (f *ir.Function, entry, header, latch, exit *ir.Block) {
	m := ir.NewModule()
	f = m.NewFunction("f", false, ir.ClassW)
	entry = f.NewBlock("entry")
	header = f.NewBlock("h")
	latch = f.NewBlock("t")
	exit = f.NewBlock("exit")

	entry.Term = &ir.Terminator{Kind: ir.TermJmp, True: header}
	header.Term = &ir.Terminator{Kind: ir.TermJnz, Arg: m.Interner.ConstInt(ir.ClassW, 1), True: latch, False: exit}
	latch.Term = &ir.Terminator{Kind: ir.TermJmp, True: header}
	exit.Term = &ir.Terminator{Kind: ir.TermRet}

	FillPredsSuccs(f)
	FillRPO(f)
	FillDominators(f)
	return
}

func TestFindLoopsDetectsSingleBackEdge(t *testing.T) {
	f, _, header, latch, exit := buildSimpleLoop()

	loops := FindLoops(f)
	assert.Len(t, loops, 1)
	lp := loops[0]
	assert.Same(t, header, lp.Header)
	assert.ElementsMatch(t, []*ir.Block{latch}, lp.Latches)
	assert.Len(t, lp.Body, 2)
	assert.True(t, lp.Body[header])
	assert.True(t, lp.Body[latch])
	assert.False(t, lp.Body[exit])
}

func TestDomTreeLCAOfDiamondBranchesIsEntry(t *testing.T) {
	f, _ := buildDiamond()
	FillPredsSuccs(f)
	FillRPO(f)
	FillDominators(f)

	blocks := f.Blocks()
	entry, left, right := blocks[0], blocks[1], blocks[2]

	assert.Same(t, entry, DomTreeLCA(left, right))
	assert.Same(t, left, DomTreeLCA(left, left))
}

func TestFindLoopsDetectsSelfLoop(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("g", false, ir.ClassW)
	entry := f.NewBlock("entry")
	self := f.NewBlock("self")
	exit := f.NewBlock("exit")

	entry.Term = &ir.Terminator{Kind: ir.TermJmp, True: self}
	self.Term = &ir.Terminator{Kind: ir.TermJnz, Arg: m.Interner.ConstInt(ir.ClassW, 1), True: self, False: exit}
	exit.Term = &ir.Terminator{Kind: ir.TermRet}

	FillPredsSuccs(f)
	FillRPO(f)
	FillDominators(f)

	loops := FindLoops(f)
	assert.Len(t, loops, 1)
	lp := loops[0]
	assert.Same(t, self, lp.Header, "a block with a back edge to itself is its own header")
	assert.ElementsMatch(t, []*ir.Block{self}, lp.Latches)
	assert.Len(t, lp.Body, 1)
}
