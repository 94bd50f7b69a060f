// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmid/internal/ir"
)

// buildGCMLoop builds a counted loop whose body computes %k = mul %a, %b
// from two parameters: the mul's earliest block is entry and nothing
// keeps it inside the loop, so GCM should move it out.
func buildGCMLoop() (*ir.Function, *ir.Instruction) {
	m := ir.NewModule()
	b := ir.NewBuilder(m, nil)
	f := m.NewFunction("f", false, ir.ClassW)
	b.SetFunction(f)

	entry := b.NewBlock("entry")
	head := b.NewBlock("head")
	body := b.NewBlock("body")
	done := b.NewBlock("done")

	b.SetBlock(entry)
	a := b.Par(ir.ClassW)
	bb := b.Par(ir.ClassW)
	n := b.Par(ir.ClassW)
	b.Jmp(head)

	i := f.NewTemp(ir.ClassW)
	i2 := f.NewTemp(ir.ClassW)
	head.Phis = append(head.Phis, &ir.Phi{Dest: i, Cls: ir.ClassW, Block: head,
		Args: []ir.PhiArg{
			{Block: entry, Val: m.Interner.ConstInt(ir.ClassW, 0)},
			{Block: body, Val: i2},
		}})
	b.SetBlock(head)
	c := b.Compare(ir.CmpLt, ir.ClassW, i, n)
	b.Jnz(c, body, done)

	b.SetBlock(body)
	k := b.Mul(ir.ClassW, a, bb)
	mul := body.Instrs[len(body.Instrs)-1]
	add := &ir.Instruction{Op: ir.OAdd, Cls: ir.ClassW, Dest: i2,
		Args: [2]ir.Value{i, k}, NArgs: 2}
	body.Instrs = append(body.Instrs, add)
	b.Jmp(head)

	b.SetBlock(done)
	b.Ret(i)

	return f, mul
}

func TestGCMHoistsLoopIndependentMul(t *testing.T) {
	f, mul := buildGCMLoop()

	changed := GCM(f)
	assert.True(t, changed)

	blocks := f.Blocks()
	entry, body := blocks[0], blocks[2]
	assert.Same(t, entry, mul.Block, "the mul depends only on entry defs and must leave the loop")
	for _, in := range body.Instrs {
		assert.NotEqual(t, ir.OMul, in.Op)
	}
}

func TestGCMKeepsPinnedInstructions(t *testing.T) {
	m := ir.NewModule()
	b := ir.NewBuilder(m, nil)
	f := m.NewFunction("g", false, ir.ClassW)
	b.SetFunction(f)

	entry := b.NewBlock("entry")
	use := b.NewBlock("use")
	b.SetBlock(entry)
	p := b.Par(ir.ClassL)
	b.Jmp(use)
	b.SetBlock(use)
	v := b.Load(ir.ClassW, p)
	b.Ret(v)

	changed := GCM(f)
	assert.False(t, changed, "loads and pars are pinned; nothing should move")
	require.Len(t, use.Instrs, 1)
	assert.Equal(t, ir.OLoadW, use.Instrs[0].Op)
}

func TestGCMLeavesDeadValueForDCE(t *testing.T) {
	m := ir.NewModule()
	b := ir.NewBuilder(m, nil)
	f := m.NewFunction("h", false, ir.ClassW)
	b.SetFunction(f)

	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	x := b.Par(ir.ClassW)
	b.Add(ir.ClassW, x, m.Interner.ConstInt(ir.ClassW, 1)) // unused
	b.Ret(x)

	changed := GCM(f)
	assert.False(t, changed)
	assert.Len(t, entry.Instrs, 2, "a use-less instruction stays put for DCE to collect")
}
