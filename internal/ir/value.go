// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"fmt"
	"math"
)

// Value is the operand kind used by instructions, phis, and terminators.
// It is polymorphic over three variants: Temp (an SSA name),
// ConstBits (an interned constant bit pattern), and GlobalAddress (an
// interned symbol reference). Rather than an inheritance hierarchy with
// dynamic casts, it is expressed as a small tagged interface discriminated
// by type switch.
type Value interface {
	fmt.Stringer
	isValue()
	Class() Class
}

// Temp is an SSA name: a destination temporary with a use-list and a
// def-list annotation, both maintained by analyses. A temp is unique within its owning Function.
type Temp struct {
	ID   int
	Cls  Class
	Defs []Def
	Uses []Use
}

func (t *Temp) isValue()         {}
func (t *Temp) Class() Class     { return t.Cls }
func (t *Temp) String() string   { return fmt.Sprintf("%%t%d", t.ID) }

// ConstBits is an interned constant. Integers and floats are both stored
// as a raw bit pattern tagged with the class they were created under, so
// equality and interning reduce to a single map lookup.
type ConstBits struct {
	Cls  Class
	Bits uint64
}

func (c *ConstBits) isValue()     {}
func (c *ConstBits) Class() Class { return c.Cls }

func (c *ConstBits) String() string {
	switch c.Cls {
	case ClassS:
		return fmt.Sprintf("s_%g", math.Float32frombits(uint32(c.Bits)))
	default:
		return fmt.Sprintf("%d", int64(c.Bits))
	}
}

// Int returns the constant's value as a signed integer (valid when Cls is
// an integer class).
func (c *ConstBits) Int() int64 { return int64(c.Bits) }

// Float returns the constant's value as a float32 (valid when Cls == ClassS).
func (c *ConstBits) Float() float32 { return math.Float32frombits(uint32(c.Bits)) }

// GlobalAddress is an interned reference to a module-level symbol (a
// function or a data definition). It always has address class.
type GlobalAddress struct {
	Sym string
}

func (g *GlobalAddress) isValue()     {}
func (g *GlobalAddress) Class() Class { return ClassL }
func (g *GlobalAddress) String() string { return "$" + g.Sym }

// Def tags a single definition site of a Temp: either a Phi (at block
// entry) or a regular Instruction. Both carry the defining Block, since
// phi uses are checked against incoming blocks rather than instruction
// order.
type Def struct {
	Phi   *Phi
	Instr *Instruction
	Block *Block
}

// IsPhi reports whether this def site is a phi node.
func (d Def) IsPhi() bool { return d.Phi != nil }

// Use tags a single use site of a Value: a phi incoming value (tagged with
// the phi and the incoming block the value arrives from), an instruction
// operand (tagged with its block), or a terminator argument
// (tagged with the block that owns the terminator).
type Use struct {
	Phi    *Phi
	Instr  *Instruction
	IsTerm bool
	Block  *Block
}

func (u Use) IsPhiUse() bool  { return u.Phi != nil }
func (u Use) IsInstUse() bool { return u.Instr != nil }
func (u Use) IsJmpUse() bool  { return u.IsTerm }

// ValueInterner holds the constant/address interning caches, hung off a
// per-compilation Module rather than a process global so compilation
// stays hermetic and reentrant.
type ValueInterner struct {
	consts  map[ConstBits]*ConstBits
	globals map[string]*GlobalAddress
}

func newValueInterner() *ValueInterner {
	return &ValueInterner{
		consts:  make(map[ConstBits]*ConstBits),
		globals: make(map[string]*GlobalAddress),
	}
}

// ConstInt interns an integer constant of the given class.
func (vi *ValueInterner) ConstInt(cls Class, v int64) *ConstBits {
	return vi.intern(ConstBits{Cls: cls, Bits: uint64(v)})
}

// ConstFloat interns a float32 constant.
func (vi *ValueInterner) ConstFloat(v float32) *ConstBits {
	return vi.intern(ConstBits{Cls: ClassS, Bits: uint64(math.Float32bits(v))})
}

// ConstBitsOf interns a raw-bits constant directly.
func (vi *ValueInterner) ConstBitsOf(cls Class, bits uint64) *ConstBits {
	return vi.intern(ConstBits{Cls: cls, Bits: bits})
}

func (vi *ValueInterner) intern(key ConstBits) *ConstBits {
	if existing, ok := vi.consts[key]; ok {
		return existing
	}
	v := key
	vi.consts[key] = &v
	return &v
}

// Global interns a global address by symbol name.
func (vi *ValueInterner) Global(sym string) *GlobalAddress {
	if existing, ok := vi.globals[sym]; ok {
		return existing
	}
	g := &GlobalAddress{Sym: sym}
	vi.globals[sym] = g
	return g
}

// IsConstZero reports whether v is the interned integer/float constant 0.
func IsConstZero(v Value) bool {
	c, ok := v.(*ConstBits)
	if !ok {
		return false
	}
	if c.Cls == ClassS {
		return c.Float() == 0
	}
	return c.Bits == 0
}

// IsConstOne reports whether v is the interned integer/float constant 1.
func IsConstOne(v Value) bool {
	c, ok := v.(*ConstBits)
	if !ok {
		return false
	}
	if c.Cls == ClassS {
		return c.Float() == 1
	}
	return int64(c.Bits) == 1
}
