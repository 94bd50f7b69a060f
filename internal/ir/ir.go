// SPDX-License-Identifier: Apache-2.0

// Package ir implements the SSA-form, QBE-flavored intermediate
// representation that sits between the front end and the register
// allocator / code generator: modules, functions, basic blocks,
// instructions, phis, and terminators, plus the builder/folder that
// constructs them.
package ir

import "fmt"

// Op is an instruction opcode. Every non-phi, non-terminator instruction
// in the IR is a single tagged record: opcode, optional destination
// temporary, and up to two argument values.
type Op byte

const (
	OAdd Op = iota
	OSub
	ONeg
	OMul
	ODiv
	ORem

	OLoadW
	OLoadL
	OLoadS
	OStoreW
	OStoreL
	OStoreS
	OAlloc4
	OAlloc8

	OCeqW
	OCneW
	OCsltW
	OCsleW
	OCsgtW
	OCsgeW
	OCeqS
	OCneS
	OCltS
	OCleS
	OCgtS
	OCgeS

	OExtSW // sign-extend word to long
	OStoSi // float to signed int
	OSwToF // signed int to float

	OPar  // parameter receipt
	OArg  // argument pass
	OCall // call

	OCopy
	ONop

	// Internal-only pseudo-ops that make SSA-destruction state
	// inspectable. Never seen by the backend.
	OParCopy
	OSwap
)

var opNames = map[Op]string{
	OAdd: "add", OSub: "sub", ONeg: "neg", OMul: "mul", ODiv: "div", ORem: "rem",
	OLoadW: "loadw", OLoadL: "loadl", OLoadS: "loads",
	OStoreW: "storew", OStoreL: "storel", OStoreS: "stores",
	OAlloc4: "alloc4", OAlloc8: "alloc8",
	OCeqW: "ceqw", OCneW: "cnew", OCsltW: "csltw", OCsleW: "cslew", OCsgtW: "csgtw", OCsgeW: "csgew",
	OCeqS: "ceqs", OCneS: "cnes", OCltS: "clts", OCleS: "cles", OCgtS: "cgts", OCgeS: "cges",
	OExtSW: "extsw", OStoSi: "stosi", OSwToF: "swtof",
	OPar: "par", OArg: "arg", OCall: "call",
	OCopy: "copy", ONop: "nop",
	OParCopy: "parcopy", OSwap: "swap",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "?op"
}

// IsArith reports whether o is an arithmetic opcode.
func (o Op) IsArith() bool {
	switch o {
	case OAdd, OSub, ONeg, OMul, ODiv, ORem:
		return true
	}
	return false
}

// IsCompare reports whether o is an integer or float comparison.
func (o Op) IsCompare() bool {
	switch o {
	case OCeqW, OCneW, OCsltW, OCsleW, OCsgtW, OCsgeW, OCeqS, OCneS, OCltS, OCleS, OCgtS, OCgeS:
		return true
	}
	return false
}

// IsLoad reports whether o reads memory.
func (o Op) IsLoad() bool {
	switch o {
	case OLoadW, OLoadL, OLoadS:
		return true
	}
	return false
}

// IsStore reports whether o writes memory.
func (o Op) IsStore() bool {
	switch o {
	case OStoreW, OStoreL, OStoreS:
		return true
	}
	return false
}

// IsAlloc reports whether o is a stack allocation.
func (o Op) IsAlloc() bool { return o == OAlloc4 || o == OAlloc8 }

// IsConversion reports whether o is a width/domain conversion.
func (o Op) IsConversion() bool {
	switch o {
	case OExtSW, OStoSi, OSwToF:
		return true
	}
	return false
}

// IsCallProtocol reports whether o is one of the call-protocol pseudo-ops.
func (o Op) IsCallProtocol() bool {
	switch o {
	case OPar, OArg, OCall:
		return true
	}
	return false
}

// IsCommutative reports whether operand order can be swapped without
// changing meaning — used by GVN canonicalization.
func (o Op) IsCommutative() bool {
	switch o {
	case OAdd, OMul, OCeqW, OCneW, OCeqS, OCneS:
		return true
	}
	return false
}

// HasSideEffect reports whether an instruction with this opcode must never
// be removed by dead-code elimination and must never be treated as loop
// invariant: stores, calls, and the call-protocol
// pseudo-ops par/arg.
func (o Op) HasSideEffect() bool {
	return o.IsStore() || o.IsCallProtocol()
}

// Instruction is a single IR instruction: opcode, optional destination,
// and up to two operand values. ID is filled by analyses that number
// instructions within a function.
type Instruction struct {
	ID    int
	Op    Op
	Cls   Class
	Dest  *Temp
	Args  [2]Value
	NArgs int
	Block *Block
}

// Arg returns the i-th operand, or nil if the instruction has fewer than
// i+1 operands.
func (in *Instruction) Arg(i int) Value {
	if i < in.NArgs {
		return in.Args[i]
	}
	return nil
}

func (in *Instruction) String() string {
	var b string
	if in.Dest != nil {
		b = fmt.Sprintf("%s =%s %s", in.Dest, in.Cls, in.Op)
	} else {
		b = in.Op.String()
	}
	for i := 0; i < in.NArgs; i++ {
		if i == 0 {
			b += " " + in.Args[i].String()
		} else {
			b += ", " + in.Args[i].String()
		}
	}
	return b
}

// PhiArg is one (incoming-block, value) pair of a Phi.
type PhiArg struct {
	Block *Block
	Val   Value
}

// Phi is a pseudo-instruction at block entry selecting among incoming
// values by predecessor. Its argument count must equal its
// block's predecessor count, in predecessor order.
type Phi struct {
	Dest  *Temp
	Cls   Class
	Block *Block
	Args  []PhiArg
}

func (p *Phi) String() string {
	s := fmt.Sprintf("%s =%s phi", p.Dest, p.Cls)
	for i, a := range p.Args {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(" @%s %s", blockLabel(a.Block), a.Val)
	}
	return s
}

// TermKind identifies a terminator's shape.
type TermKind byte

const (
	TermFallthrough TermKind = iota
	TermJmp
	TermJnz
	TermRet
)

// Terminator ends a block: fall-through, unconditional jump, conditional
// jump, or return. Successor counts must agree with the
// kind: fall-through 0, jump 1, cond-jump 2, return 0.
type Terminator struct {
	Kind  TermKind
	Arg   Value // condition (Jnz) or return value (Ret), may be nil
	True  *Block
	False *Block
}

func (t *Terminator) String() string {
	switch t.Kind {
	case TermJmp:
		return "jmp @" + blockLabel(t.True)
	case TermJnz:
		return fmt.Sprintf("jnz %s, @%s, @%s", t.Arg, blockLabel(t.True), blockLabel(t.False))
	case TermRet:
		if t.Arg != nil {
			return "ret " + t.Arg.String()
		}
		return "ret"
	default:
		return "<fallthrough>"
	}
}

// Successors returns the block's target list per its terminator kind.
func (t *Terminator) Successors() []*Block {
	switch t.Kind {
	case TermJmp:
		return []*Block{t.True}
	case TermJnz:
		if t.True == t.False {
			return []*Block{t.True}
		}
		return []*Block{t.True, t.False}
	default:
		return nil
	}
}

// Block is a basic block: an ordered list of phis, an ordered list of
// instructions, and a terminator, linked to the next block in source
// order. The fields below IDom/DomFrontier/etc. are filled and
// invalidated exclusively by package analysis.
type Block struct {
	ID   int
	Name string

	Phis   []*Phi
	Instrs []*Instruction
	Term   *Terminator
	Next   *Block

	Preds []*Block
	Succs []*Block

	IDom        *Block
	DomChildren []*Block
	DomFrontier []*Block
	DomDepth    int
	// Doms is the set of blocks this block dominates, itself included.
	// Loop discovery and LICM consult it as a closure.
	Doms map[*Block]bool

	LiveIn  map[*Temp]bool
	LiveOut map[*Temp]bool
}

// Dominates reports whether b dominates other, using the Doms closure
// filled by analysis.FillDominators.
func (b *Block) Dominates(other *Block) bool {
	if b.Doms == nil {
		return b == other
	}
	return b.Doms[other]
}

// Function is a single function: its blocks (a singly linked list, entry
// = Start, tail = End), parameters, and derived fields filled by analyses
// (reverse post order, leaf-ness, inlinability).
type Function struct {
	Export bool
	Name   string
	RetCls Class
	Params []*Temp

	Start, End *Block

	RPO       []*Block
	Leaf      bool
	Inlinable bool

	nextTempID  int
	nextBlockID int
	temps       map[int]*Temp
	module      *Module
}

// Blocks returns the function's blocks in source (linked-list) order.
func (f *Function) Blocks() []*Block {
	var bs []*Block
	for b := f.Start; b != nil; b = b.Next {
		bs = append(bs, b)
	}
	return bs
}

// NewTemp allocates a fresh SSA temporary of the given class, using the
// function's monotonically increasing per-function counter.
func (f *Function) NewTemp(cls Class) *Temp {
	f.nextTempID++
	t := &Temp{ID: f.nextTempID, Cls: cls}
	f.temps[t.ID] = t
	return t
}

// Temps returns every temporary the function currently contains.
func (f *Function) Temps() []*Temp {
	ts := make([]*Temp, 0, len(f.temps))
	for _, t := range f.temps {
		ts = append(ts, t)
	}
	return ts
}

// ForgetTemp drops a temporary from the function's tracked set — used by
// passes that erase dead SSA names so later passes don't iterate them.
func (f *Function) ForgetTemp(t *Temp) { delete(f.temps, t.ID) }

// NewBlock creates a new block with a module-unique id and appends it to
// the function's block list (source order). name is for debugging/printing
// only; it need not be unique.
func (f *Function) NewBlock(name string) *Block {
	id := f.module.NextBlockID()
	f.nextBlockID++
	if name == "" {
		name = fmt.Sprintf("b%d", f.nextBlockID)
	}
	b := &Block{ID: id, Name: name}
	if f.Start == nil {
		f.Start = b
		f.End = b
	} else {
		f.End.Next = b
		f.End = b
	}
	return b
}

// InsertBlockAfter splices nb into the linked list immediately after b.
func (f *Function) InsertBlockAfter(b, nb *Block) {
	nb.Next = b.Next
	b.Next = nb
	if f.End == b {
		f.End = nb
	}
}

// RemoveBlock splices b out of the function's block list. Callers must
// have already ensured no remaining block references b.
func (f *Function) RemoveBlock(b *Block) {
	if f.Start == b {
		f.Start = b.Next
		if f.End == b {
			f.End = nil
		}
		return
	}
	for p := f.Start; p != nil; p = p.Next {
		if p.Next == b {
			p.Next = b.Next
			if f.End == b {
				f.End = p
			}
			return
		}
	}
}

// DataItem is one element of a Data definition: either a typed constant
// or a zero-fill of a given byte size.
type DataItem struct {
	IsZero   bool
	ZeroSize int
	Cls      Class
	Bits     uint64
}

// DataDef is a global data definition: alignment, export flag, and an
// ordered list of items.
type DataDef struct {
	Name   string
	Align  int
	Export bool
	Items  []DataItem
}

// Module owns an ordered sequence of data definitions and functions, plus
// the module-wide block-id counter and the value interning tables
//.
type Module struct {
	Datas []*DataDef
	Funcs []*Function

	Interner *ValueInterner

	blockIDCounter int
}

// NewModule creates an empty module with fresh interning tables. Each
// Module is an independent compilation context: nothing here is process-global.
func NewModule() *Module {
	return &Module{Interner: newValueInterner()}
}

// NextBlockID issues the next module-wide unique block id.
func (m *Module) NextBlockID() int {
	m.blockIDCounter++
	return m.blockIDCounter
}

// NewFunction creates a function owned by this module and appends it to
// the module's function list.
func (m *Module) NewFunction(name string, export bool, retCls Class) *Function {
	f := &Function{
		Export: export,
		Name:   name,
		RetCls: retCls,
		temps:  make(map[int]*Temp),
		module: m,
	}
	m.Funcs = append(m.Funcs, f)
	return f
}
