// SPDX-License-Identifier: Apache-2.0
package ir

// Folder performs construction-time constant folding: every
// arithmetic/compare builder entrypoint consults it first. If both
// operands are interned constants of the matching class, the fold
// produces the computed constant and no instruction is emitted. Short of
// that, a fixed set of algebraic identities fold against a non-constant
// but syntactically identical operand (e.g. x-x, x/x) or against a
// literal zero/one, again without emitting an instruction.
type Folder struct {
	interner *ValueInterner
}

func newFolder(vi *ValueInterner) *Folder { return &Folder{interner: vi} }

// NewFolder exposes the folder to callers outside this package (the
// optimizer's local constant/copy propagation pass re-attempts folding
// after rewriting operands through its replacement map).
func NewFolder(vi *ValueInterner) *Folder { return newFolder(vi) }

// FoldBinary attempts to fold a binary op. It returns the folded value and
// true on success, or (nil, false) if the builder must emit a real
// instruction.
func (fl *Folder) FoldBinary(op Op, cls Class, a, b Value) (Value, bool) {
	if v, ok := fl.foldConstants(op, cls, a, b); ok {
		return v, true
	}
	return fl.foldIdentity(op, cls, a, b)
}

// FoldUnary attempts to fold neg.
func (fl *Folder) FoldUnary(op Op, cls Class, a Value) (Value, bool) {
	if op != ONeg {
		return nil, false
	}
	if c, ok := a.(*ConstBits); ok {
		if cls.IsFloat() {
			return fl.interner.ConstFloat(-c.Float()), true
		}
		return fl.interner.ConstInt(cls, -c.Int()), true
	}
	return nil, false
}

func (fl *Folder) foldConstants(op Op, cls Class, a, b Value) (Value, bool) {
	ca, aok := a.(*ConstBits)
	cb, bok := b.(*ConstBits)
	if !aok || !bok || ca.Cls != cls || cb.Cls != cls {
		return nil, false
	}
	if cls.IsFloat() {
		return fl.foldFloatConstants(op, ca.Float(), cb.Float())
	}
	return fl.foldIntConstants(op, cls, ca.Int(), cb.Int())
}

func (fl *Folder) foldIntConstants(op Op, cls Class, a, b int64) (Value, bool) {
	switch op {
	case OAdd:
		return fl.interner.ConstInt(cls, a+b), true
	case OSub:
		return fl.interner.ConstInt(cls, a-b), true
	case OMul:
		return fl.interner.ConstInt(cls, a*b), true
	case ODiv:
		if b == 0 {
			return nil, false
		}
		return fl.interner.ConstInt(cls, a/b), true // host truncating semantics
	case ORem:
		if b == 0 {
			return nil, false
		}
		return fl.interner.ConstInt(cls, a%b), true
	case OCeqW:
		return fl.boolConst(a == b), true
	case OCneW:
		return fl.boolConst(a != b), true
	case OCsltW:
		return fl.boolConst(a < b), true
	case OCsleW:
		return fl.boolConst(a <= b), true
	case OCsgtW:
		return fl.boolConst(a > b), true
	case OCsgeW:
		return fl.boolConst(a >= b), true
	}
	return nil, false
}

func (fl *Folder) foldFloatConstants(op Op, a, b float32) (Value, bool) {
	switch op {
	case OAdd:
		return fl.interner.ConstFloat(a + b), true
	case OSub:
		return fl.interner.ConstFloat(a - b), true
	case OMul:
		return fl.interner.ConstFloat(a * b), true
	case ODiv:
		if b == 0 {
			return nil, false
		}
		return fl.interner.ConstFloat(a / b), true
	case OCeqS:
		return fl.boolConst(a == b), true
	case OCneS:
		return fl.boolConst(a != b), true
	case OCltS:
		return fl.boolConst(a < b), true
	case OCleS:
		return fl.boolConst(a <= b), true
	case OCgtS:
		return fl.boolConst(a > b), true
	case OCgeS:
		return fl.boolConst(a >= b), true
	}
	return nil, false
}

func (fl *Folder) boolConst(v bool) *ConstBits {
	if v {
		return fl.interner.ConstInt(ClassW, 1)
	}
	return fl.interner.ConstInt(ClassW, 0)
}

// foldIdentity recognizes the algebraic identities folded without
// emitting an instruction: x+0, x-0, x-x, x*0, x*1, x/x, x/1, x%1, 0/x,
// 0%x, and their float variants.
//
// sameValue compares operands by identity (the same interned constant or
// the same Temp pointer), which is how "syntactically identical operands"
// is decided for the x-x and x/x identities at construction time.
func (fl *Folder) foldIdentity(op Op, cls Class, a, b Value) (Value, bool) {
	switch op {
	case OAdd:
		if IsConstZero(a) {
			return b, true
		}
		if IsConstZero(b) {
			return a, true
		}
	case OSub:
		if IsConstZero(b) {
			return a, true
		}
		if sameValue(a, b) {
			return fl.zero(cls), true
		}
	case OMul:
		if IsConstZero(a) || IsConstZero(b) {
			return fl.zero(cls), true
		}
		if IsConstOne(a) {
			return b, true
		}
		if IsConstOne(b) {
			return a, true
		}
	case ODiv:
		if IsConstZero(a) {
			return fl.zero(cls), true
		}
		if IsConstOne(b) {
			return a, true
		}
		if sameValue(a, b) && !IsConstZero(a) {
			return fl.one(cls), true
		}
	case ORem:
		if cls.IsInt() {
			if IsConstZero(a) {
				return fl.zero(cls), true
			}
			if IsConstOne(b) {
				return fl.zero(cls), true
			}
		}
	}
	return nil, false
}

func (fl *Folder) zero(cls Class) Value {
	if cls.IsFloat() {
		return fl.interner.ConstFloat(0)
	}
	return fl.interner.ConstInt(cls, 0)
}

func (fl *Folder) one(cls Class) Value {
	if cls.IsFloat() {
		return fl.interner.ConstFloat(1)
	}
	return fl.interner.ConstInt(cls, 1)
}

func sameValue(a, b Value) bool {
	if a == b {
		return true
	}
	ca, aok := a.(*ConstBits)
	cb, bok := b.(*ConstBits)
	if aok && bok {
		return *ca == *cb
	}
	return false
}
