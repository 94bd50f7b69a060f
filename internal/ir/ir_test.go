// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassPredicates(t *testing.T) {
	assert.True(t, ClassW.IsInt())
	assert.True(t, ClassL.IsInt())
	assert.False(t, ClassW.IsFloat())
	assert.True(t, ClassS.IsFloat())
	assert.Equal(t, "w", ClassW.String())
	assert.Equal(t, "s", ClassS.String())
}

func TestModuleAndFunctionConstruction(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("add", true, ClassW)
	assert.Len(t, m.Funcs, 1)
	assert.Same(t, fn, m.Funcs[0])

	b0 := fn.NewBlock("start")
	b1 := fn.NewBlock("next")
	assert.Equal(t, []*Block{b0, b1}, fn.Blocks())
	assert.NotEqual(t, b0.ID, b1.ID, "blocks get module-unique ids")
}

func TestNewTempMonotonic(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", false, ClassW)
	t1 := fn.NewTemp(ClassW)
	t2 := fn.NewTemp(ClassL)
	assert.NotEqual(t, t1.ID, t2.ID)
	assert.Len(t, fn.Temps(), 2)

	fn.ForgetTemp(t1)
	assert.Len(t, fn.Temps(), 1)
}

func TestTerminatorSuccessors(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", false, ClassW)
	a := fn.NewBlock("a")
	b := fn.NewBlock("b")

	jmp := &Terminator{Kind: TermJmp, True: a}
	assert.Equal(t, []*Block{a}, jmp.Successors())

	jnz := &Terminator{Kind: TermJnz, True: a, False: b}
	assert.ElementsMatch(t, []*Block{a, b}, jnz.Successors())

	sameTarget := &Terminator{Kind: TermJnz, True: a, False: a}
	assert.Equal(t, []*Block{a}, sameTarget.Successors(), "identical branch targets collapse to one successor")

	ret := &Terminator{Kind: TermRet}
	assert.Nil(t, ret.Successors())
}

func TestInstructionString(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", false, ClassW)
	dest := fn.NewTemp(ClassW)
	c1 := m.Interner.ConstInt(ClassW, 1)
	c2 := m.Interner.ConstInt(ClassW, 2)
	in := &Instruction{Op: OAdd, Cls: ClassW, Dest: dest, Args: [2]Value{c1, c2}, NArgs: 2}
	assert.Equal(t, "%t1 =w add 1, 2", in.String())
}

func TestOpPredicates(t *testing.T) {
	assert.True(t, OAdd.IsArith())
	assert.True(t, OCeqW.IsCompare())
	assert.True(t, OLoadW.IsLoad())
	assert.True(t, OStoreW.IsStore())
	assert.True(t, OAlloc4.IsAlloc())
	assert.True(t, OExtSW.IsConversion())
	assert.True(t, OCall.IsCallProtocol())
	assert.True(t, OAdd.IsCommutative())
	assert.False(t, OSub.IsCommutative())
	assert.True(t, OStoreW.HasSideEffect())
	assert.True(t, OArg.HasSideEffect())
	assert.False(t, OLoadW.HasSideEffect())
}
