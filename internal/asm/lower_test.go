// SPDX-License-Identifier: Apache-2.0
package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmid/internal/errors"
	"cmid/internal/ir"
)

func lowerSource(t *testing.T, src string) (*ir.Module, *errors.Reporter) {
	t.Helper()
	prog, err := ParseString("test.ssa", src)
	require.NoError(t, err)
	rep := errors.NewReporter("test.ssa", src)
	return Lower(prog, rep), rep
}

func TestLowerFoldsConstantsThroughBuilder(t *testing.T) {
	m, rep := lowerSource(t, `
function w $f() {
@entry
	%t =w add 2, 3
	ret %t
}
`)
	assert.False(t, rep.HasErrors())
	require.Len(t, m.Funcs, 1)

	entry := m.Funcs[0].Start
	assert.Empty(t, entry.Instrs, "a constant add must fold at build time, emitting nothing")
	c, ok := entry.Term.Arg.(*ir.ConstBits)
	require.True(t, ok)
	assert.Equal(t, int64(5), c.Int())
}

func TestLowerAlgebraicIdentity(t *testing.T) {
	m, rep := lowerSource(t, `
function w $f(w %x) {
@entry
	%t =w mul %x, 1
	ret %t
}
`)
	assert.False(t, rep.HasErrors())

	f := m.Funcs[0]
	assert.Len(t, f.Start.Instrs, 1, "only the par should remain; mul by one folds away")
	assert.Same(t, f.Params[0], f.Start.Term.Arg, "%t must resolve to %x itself")
}

func TestLowerLoopWithForwardPhiReference(t *testing.T) {
	m, rep := lowerSource(t, `
function w $sum(w %n) {
@entry
	jmp @head
@head
	%i =w phi @entry 0, @body %i2
	%c =w csltw %i, %n
	jnz %c, @body, @done
@body
	%i2 =w add %i, 1
	jmp @head
@done
	ret %i
}
`)
	assert.False(t, rep.HasErrors(), "phi may reference a temp defined in a later block")

	head := m.Funcs[0].Blocks()[1]
	require.Len(t, head.Phis, 1)
	phi := head.Phis[0]
	require.Len(t, phi.Args, 2)
	assert.NotNil(t, phi.Args[1].Val, "forward phi argument must be patched after lowering")
	_, isTemp := phi.Args[1].Val.(*ir.Temp)
	assert.True(t, isTemp)
}

func TestLowerReportsUndefinedTemp(t *testing.T) {
	_, rep := lowerSource(t, `
function w $f() {
@entry
	%t =w add %missing, 1
	ret %t
}
`)
	require.True(t, rep.HasErrors())
	assert.Equal(t, errors.ErrorUndefinedTemp, rep.Diagnostics()[0].Code)
}

func TestLowerReportsUnknownOpcode(t *testing.T) {
	_, rep := lowerSource(t, `
function w $f() {
@entry
	%t =w frobnicate 1, 2
	ret %t
}
`)
	require.True(t, rep.HasErrors())
	assert.Equal(t, errors.ErrorUnknownOpcode, rep.Diagnostics()[0].Code)
}

func TestLowerAllocAlwaysLandsInEntry(t *testing.T) {
	m, rep := lowerSource(t, `
function w $f(w %c) {
@entry
	jnz %c, @a, @b
@a
	%p =l alloc4 4
	storew %p, 1
	%v =w loadw %p
	ret %v
@b
	ret 0
}
`)
	assert.False(t, rep.HasErrors())

	f := m.Funcs[0]
	blocks := f.Blocks()
	found := false
	for _, in := range blocks[0].Instrs {
		if in.Op.IsAlloc() {
			found = true
		}
	}
	assert.True(t, found, "alloc4 must be placed in the entry block")
	for _, in := range blocks[1].Instrs {
		assert.False(t, in.Op.IsAlloc())
	}
}

func TestLowerDataDefinition(t *testing.T) {
	m, rep := lowerSource(t, "data $tab = align 4 { w 7, z 8 }\n")
	assert.False(t, rep.HasErrors())
	require.Len(t, m.Datas, 1)

	d := m.Datas[0]
	assert.Equal(t, "tab", d.Name)
	assert.Equal(t, 4, d.Align)
	require.Len(t, d.Items, 2)
	assert.Equal(t, uint64(7), d.Items[0].Bits)
	assert.True(t, d.Items[1].IsZero)
}

func TestLowerPrintRoundTrip(t *testing.T) {
	m, rep := lowerSource(t, simpleFn)
	require.False(t, rep.HasErrors())

	text := ir.Print(m)
	prog, err := ParseString("roundtrip.ssa", text)
	require.NoError(t, err, "printed IR must parse back:\n%s", text)

	rep2 := errors.NewReporter("roundtrip.ssa", text)
	m2 := Lower(prog, rep2)
	assert.False(t, rep2.HasErrors())
	require.Len(t, m2.Funcs, 1)
	assert.Len(t, m2.Funcs[0].Blocks(), len(m.Funcs[0].Blocks()))
}
