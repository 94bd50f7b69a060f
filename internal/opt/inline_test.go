// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmid/internal/ir"
)

func buildCallerAndCallee() (*ir.Module, *ir.Temp) {
	m := ir.NewModule()
	b := ir.NewBuilder(m, nil)

	callee := m.NewFunction("add1", false, ir.ClassW)
	b.SetFunction(callee)
	ce := b.NewBlock("entry")
	b.SetBlock(ce)
	p := b.Par(ir.ClassW)
	v := b.Add(ir.ClassW, p, m.Interner.ConstInt(ir.ClassW, 1))
	b.Ret(v)

	caller := m.NewFunction("main", true, ir.ClassW)
	b.SetFunction(caller)
	me := b.NewBlock("entry")
	b.SetBlock(me)
	b.Arg(ir.ClassW, m.Interner.ConstInt(ir.ClassW, 5))
	r := b.Call(ir.ClassW, "add1")
	b.Ret(r)

	return m, r.(*ir.Temp)
}

func countCalls(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			if in.Op == ir.OCall {
				n++
			}
		}
	}
	return n
}

func TestInlineExpandsCallSite(t *testing.T) {
	m, r := buildCallerAndCallee()
	FillModuleFlags(m)
	require.True(t, m.Funcs[0].Inlinable)

	changed := Inline(m)
	assert.True(t, changed)

	caller := m.Funcs[1]
	assert.Equal(t, 0, countCalls(caller), "the call must be fully expanded")

	// the callee's return value now reaches the caller through a copy to
	// the old call destination
	var retCopy *ir.Instruction
	for _, b := range caller.Blocks() {
		for _, in := range b.Instrs {
			if in.Op == ir.OCopy && in.Dest == r {
				retCopy = in
			}
		}
	}
	require.NotNil(t, retCopy)

	// the join block keeps the original terminator
	blocks := caller.Blocks()
	last := blocks[len(blocks)-1]
	assert.Equal(t, ir.TermRet, last.Term.Kind)
	assert.Same(t, ir.Value(r), last.Term.Arg)
}

func TestInlineConvertsParToCopyOfArgument(t *testing.T) {
	m, _ := buildCallerAndCallee()
	FillModuleFlags(m)
	Inline(m)

	caller := m.Funcs[1]
	found := false
	for _, b := range caller.Blocks() {
		for _, in := range b.Instrs {
			if in.Op == ir.OCopy && in.NArgs == 1 {
				if c, ok := in.Args[0].(*ir.ConstBits); ok && c.Int() == 5 {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "the cloned par must become a copy of the arg value 5")
	assert.Equal(t, 0, countCalls(caller))
	for _, b := range caller.Blocks() {
		for _, in := range b.Instrs {
			assert.NotEqual(t, ir.OPar, in.Op, "cloned pars must not survive")
			assert.NotEqual(t, ir.OArg, in.Op, "consumed args must not survive")
		}
	}
}

func TestInlineSkipsSelfRecursiveCallee(t *testing.T) {
	m := ir.NewModule()
	b := ir.NewBuilder(m, nil)
	f := m.NewFunction("loop", false, ir.ClassW)
	b.SetFunction(f)
	e := b.NewBlock("entry")
	b.SetBlock(e)
	r := b.Call(ir.ClassW, "loop")
	b.Ret(r)

	FillModuleFlags(m)
	assert.False(t, f.Inlinable)
	assert.False(t, Inline(m))
	assert.Equal(t, 1, countCalls(f))
}
