// SPDX-License-Identifier: Apache-2.0
package ir

import "fmt"

// Builder is the front end's only way of producing IR: it exposes operations to select the current function/block,
// create new blocks, append typed instructions, and set a block's
// terminator.
type Builder struct {
	module *Module
	folder *Folder

	fn *Function
	bb *Block

	diag DiagSink
}

// DiagSink receives front-end semantic diagnostics raised while building
//. A nil DiagSink silently drops them, which is convenient
// for tests that build IR directly.
type DiagSink interface {
	Report(line int, msg string)
}

// NewBuilder creates a Builder over module, recording diagnostics (if any)
// through diag.
func NewBuilder(module *Module, diag DiagSink) *Builder {
	return &Builder{module: module, folder: newFolder(module.Interner), diag: diag}
}

func (b *Builder) report(line int, format string, args ...any) {
	if b.diag == nil {
		return
	}
	b.diag.Report(line, fmt.Sprintf(format, args...))
}

// SetFunction makes fn the current function. Callers must also call
// SetBlock before emitting instructions.
func (b *Builder) SetFunction(fn *Function) { b.fn = fn }

// CurrentFunction returns the function currently being built.
func (b *Builder) CurrentFunction() *Function { return b.fn }

// NewBlock creates a new block owned by the current function and returns
// it without changing the current insertion point.
func (b *Builder) NewBlock(name string) *Block { return b.fn.NewBlock(name) }

// SetBlock makes bb the current insertion block.
func (b *Builder) SetBlock(bb *Block) { b.bb = bb }

// CurrentBlock returns the block currently receiving instructions.
func (b *Builder) CurrentBlock() *Block { return b.bb }

func (b *Builder) emit(in *Instruction) Value {
	b.bb.Instrs = append(b.bb.Instrs, in)
	if in.Dest != nil {
		return in.Dest
	}
	return nil
}

// entryBlock returns the function's entry block, where allocations always
// go regardless of the current insertion point.
func (b *Builder) entryBlock() *Block { return b.fn.Start }

// newDest allocates a fresh temp and attaches it as an instruction's
// destination.
func (b *Builder) newDest(cls Class) *Temp { return b.fn.NewTemp(cls) }

// --- allocation -------------------------------------------------------

// Alloc4 appends a 4-byte-aligned stack allocation of n bytes to the
// entry block, regardless of the current insertion block.
func (b *Builder) Alloc4(n int64) Value { return b.alloc(OAlloc4, n) }

// Alloc8 appends an 8-byte-aligned stack allocation of n bytes to the
// entry block, regardless of the current insertion block.
func (b *Builder) Alloc8(n int64) Value { return b.alloc(OAlloc8, n) }

// AllocFor allocates a stack slot sized for a source-level type: 4-byte
// alignment for scalars, 8-byte for pointers and arrays (whose size is
// element count times element size).
func (b *Builder) AllocFor(t SourceType) Value {
	switch t.(type) {
	case *PointerType, *ArrayType:
		return b.Alloc8(int64(t.Size()))
	default:
		return b.Alloc4(int64(t.Size()))
	}
}

func (b *Builder) alloc(op Op, n int64) Value {
	dest := b.newDest(ClassL)
	in := &Instruction{Op: op, Cls: ClassL, Dest: dest, Args: [2]Value{b.module.Interner.ConstInt(ClassL, n)}, NArgs: 1}
	eb := b.entryBlock()
	eb.Instrs = append(eb.Instrs, in)
	return dest
}

// --- arithmetic / compare / convert ------------------------------------

// binOp is the shared builder path for binary ops: consult the folder
// first, and only emit an instruction on a folding miss.
func (b *Builder) binOp(op Op, cls Class, a, bv Value) Value {
	if v, ok := b.folder.FoldBinary(op, cls, a, bv); ok {
		return v
	}
	dest := b.newDest(cls)
	in := &Instruction{Op: op, Cls: cls, Dest: dest, Args: [2]Value{a, bv}, NArgs: 2}
	return b.emit(in)
}

func (b *Builder) Add(cls Class, a, bv Value) Value { return b.binOp(OAdd, cls, a, bv) }

// Sub turns a literal-zero left operand into a Neg build (the Folder itself only ever
// returns a value without emitting, so an identity that must emit an
// instruction — turning a non-constant x into `neg x` — belongs here,
// rather than in the Folder's identity table).
func (b *Builder) Sub(cls Class, a, bv Value) Value {
	if IsConstZero(a) {
		return b.Neg(cls, bv)
	}
	return b.binOp(OSub, cls, a, bv)
}
func (b *Builder) Mul(cls Class, a, bv Value) Value { return b.binOp(OMul, cls, a, bv) }
func (b *Builder) Div(cls Class, a, bv Value) Value { return b.binOp(ODiv, cls, a, bv) }

// Rem builds an integer remainder. Using it on a float class is a
// front-end semantic error: a placeholder zero constant is
// produced so lowering can continue best-effort.
func (b *Builder) Rem(cls Class, a, bv Value, line int) Value {
	if cls.IsFloat() {
		b.report(line, "modulo is not defined on float operands")
		return b.module.Interner.ConstFloat(0)
	}
	return b.binOp(ORem, cls, a, bv)
}

func (b *Builder) Neg(cls Class, a Value) Value {
	if v, ok := b.folder.FoldUnary(ONeg, cls, a); ok {
		return v
	}
	dest := b.newDest(cls)
	return b.emit(&Instruction{Op: ONeg, Cls: cls, Dest: dest, Args: [2]Value{a}, NArgs: 1})
}

// CompareKind is the comparison relation a Compare call builds, resolved
// to an integer or float opcode variant based on the operand class.
type CompareKind byte

const (
	CmpEq CompareKind = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var intCompareOps = map[CompareKind]Op{CmpEq: OCeqW, CmpNe: OCneW, CmpLt: OCsltW, CmpLe: OCsleW, CmpGt: OCsgtW, CmpGe: OCsgeW}
var floatCompareOps = map[CompareKind]Op{CmpEq: OCeqS, CmpNe: OCneS, CmpLt: OCltS, CmpLe: OCleS, CmpGt: OCgtS, CmpGe: OCgeS}

// Compare builds a comparison of two values of operand class cls; the
// result is always class W.
func (b *Builder) Compare(kind CompareKind, cls Class, a, bv Value) Value {
	op := intCompareOps[kind]
	if cls.IsFloat() {
		op = floatCompareOps[kind]
	}
	if v, ok := b.folder.FoldBinary(op, cls, a, bv); ok {
		return v
	}
	dest := b.newDest(ClassW)
	return b.emit(&Instruction{Op: op, Cls: ClassW, Dest: dest, Args: [2]Value{a, bv}, NArgs: 2})
}

func (b *Builder) ExtSW(a Value) Value {
	dest := b.newDest(ClassL)
	return b.emit(&Instruction{Op: OExtSW, Cls: ClassL, Dest: dest, Args: [2]Value{a}, NArgs: 1})
}

func (b *Builder) StoSi(a Value) Value {
	dest := b.newDest(ClassW)
	return b.emit(&Instruction{Op: OStoSi, Cls: ClassW, Dest: dest, Args: [2]Value{a}, NArgs: 1})
}

func (b *Builder) SwToF(a Value) Value {
	dest := b.newDest(ClassS)
	return b.emit(&Instruction{Op: OSwToF, Cls: ClassS, Dest: dest, Args: [2]Value{a}, NArgs: 1})
}

// --- memory -------------------------------------------------------------

func loadOp(cls Class) Op {
	switch cls {
	case ClassW:
		return OLoadW
	case ClassS:
		return OLoadS
	default:
		return OLoadL
	}
}

func storeOp(cls Class) Op {
	switch cls {
	case ClassW:
		return OStoreW
	case ClassS:
		return OStoreS
	default:
		return OStoreL
	}
}

func (b *Builder) Load(cls Class, addr Value) Value {
	dest := b.newDest(cls)
	return b.emit(&Instruction{Op: loadOp(cls), Cls: cls, Dest: dest, Args: [2]Value{addr}, NArgs: 1})
}

func (b *Builder) Store(cls Class, addr, val Value) {
	b.emit(&Instruction{Op: storeOp(cls), Cls: cls, Args: [2]Value{addr, val}, NArgs: 2})
}

// --- call protocol --------------------------------------------------------

// Par receives the next function parameter. Front ends must call Par once per parameter, in
// order, while the entry block is current.
func (b *Builder) Par(cls Class) Value {
	dest := b.newDest(cls)
	b.emit(&Instruction{Op: OPar, Cls: cls, Dest: dest})
	b.fn.Params = append(b.fn.Params, dest)
	return dest
}

// Arg passes one call argument; a run of Args must immediately precede
// the Call they belong to.
func (b *Builder) Arg(cls Class, v Value) {
	b.emit(&Instruction{Op: OArg, Cls: cls, Args: [2]Value{v}, NArgs: 1})
}

// Call calls a direct callee symbol, consuming the preceding run of Arg
// instructions.
func (b *Builder) Call(cls Class, calleeSym string) Value {
	callee := b.module.Interner.Global(calleeSym)
	var dest *Temp
	if cls != ClassX {
		dest = b.newDest(cls)
	}
	in := &Instruction{Op: OCall, Cls: cls, Dest: dest, Args: [2]Value{callee}, NArgs: 1}
	b.bb.Instrs = append(b.bb.Instrs, in)
	if dest != nil {
		return dest
	}
	return nil
}

// --- utility --------------------------------------------------------------

func (b *Builder) Copy(cls Class, v Value) Value {
	dest := b.newDest(cls)
	return b.emit(&Instruction{Op: OCopy, Cls: cls, Dest: dest, Args: [2]Value{v}, NArgs: 1})
}

func (b *Builder) Nop() { b.emit(&Instruction{Op: ONop, Cls: ClassX}) }

// --- terminators (idempotent: a second call on an already-terminated
// block is a no-op, making dead code after return
// harmless) ------------------------------------------------------------

func (b *Builder) terminated() bool {
	return b.bb.Term != nil && b.bb.Term.Kind != TermFallthrough
}

func (b *Builder) Jmp(target *Block) {
	if b.terminated() {
		return
	}
	b.bb.Term = &Terminator{Kind: TermJmp, True: target}
}

func (b *Builder) Jnz(cond Value, t, f *Block) {
	if b.terminated() {
		return
	}
	if c, ok := cond.(*ConstBits); ok {
		if c.Bits != 0 {
			b.Jmp(t)
		} else {
			b.Jmp(f)
		}
		return
	}
	b.bb.Term = &Terminator{Kind: TermJnz, Arg: cond, True: t, False: f}
}

func (b *Builder) Ret(v Value) {
	if b.terminated() {
		return
	}
	b.bb.Term = &Terminator{Kind: TermRet, Arg: v}
}
