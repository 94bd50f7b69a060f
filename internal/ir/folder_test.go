// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldConstantArithmetic(t *testing.T) {
	m := NewModule()
	fl := newFolder(m.Interner)

	v, ok := fl.FoldBinary(OAdd, ClassW, m.Interner.ConstInt(ClassW, 2), m.Interner.ConstInt(ClassW, 3))
	assert.True(t, ok)
	assert.Equal(t, int64(5), v.(*ConstBits).Int())

	v, ok = fl.FoldBinary(ODiv, ClassW, m.Interner.ConstInt(ClassW, 7), m.Interner.ConstInt(ClassW, 0))
	assert.False(t, ok, "division by a constant zero must not fold")
	assert.Nil(t, v)

	v, ok = fl.FoldBinary(OCsltW, ClassW, m.Interner.ConstInt(ClassW, 1), m.Interner.ConstInt(ClassW, 2))
	assert.True(t, ok)
	assert.Equal(t, int64(1), v.(*ConstBits).Int())
}

func TestFoldFloatConstantArithmetic(t *testing.T) {
	m := NewModule()
	fl := newFolder(m.Interner)

	v, ok := fl.FoldBinary(OMul, ClassS, m.Interner.ConstFloat(2), m.Interner.ConstFloat(3))
	assert.True(t, ok)
	assert.Equal(t, float32(6), v.(*ConstBits).Float())
}

func TestFoldIdentities(t *testing.T) {
	m := NewModule()
	fl := newFolder(m.Interner)
	fn := m.NewFunction("f", false, ClassW)
	x := fn.NewTemp(ClassW)
	zero := m.Interner.ConstInt(ClassW, 0)
	one := m.Interner.ConstInt(ClassW, 1)

	v, ok := fl.FoldBinary(OAdd, ClassW, x, zero)
	assert.True(t, ok)
	assert.Same(t, x, v)

	v, ok = fl.FoldBinary(OSub, ClassW, x, x)
	assert.True(t, ok)
	assert.True(t, IsConstZero(v))

	v, ok = fl.FoldBinary(OMul, ClassW, x, zero)
	assert.True(t, ok)
	assert.True(t, IsConstZero(v))

	v, ok = fl.FoldBinary(OMul, ClassW, x, one)
	assert.True(t, ok)
	assert.Same(t, x, v)

	v, ok = fl.FoldBinary(ODiv, ClassW, x, one)
	assert.True(t, ok)
	assert.Same(t, x, v)

	v, ok = fl.FoldBinary(ODiv, ClassW, x, x)
	assert.True(t, ok)
	assert.True(t, IsConstOne(v))

	v, ok = fl.FoldBinary(ORem, ClassW, x, one)
	assert.True(t, ok)
	assert.True(t, IsConstZero(v))

	_, ok = fl.FoldBinary(OAdd, ClassW, x, fn.NewTemp(ClassW))
	assert.False(t, ok, "two distinct non-constant temps must not fold")
}

func TestFoldUnaryNeg(t *testing.T) {
	m := NewModule()
	fl := newFolder(m.Interner)

	v, ok := fl.FoldUnary(ONeg, ClassW, m.Interner.ConstInt(ClassW, 5))
	assert.True(t, ok)
	assert.Equal(t, int64(-5), v.(*ConstBits).Int())

	fn := m.NewFunction("f", false, ClassW)
	_, ok = fl.FoldUnary(ONeg, ClassW, fn.NewTemp(ClassW))
	assert.False(t, ok)
}
