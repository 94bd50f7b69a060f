// SPDX-License-Identifier: Apache-2.0
package asm

import (
	"math"
	"strconv"
	"strings"

	"cmid/internal/errors"
	"cmid/internal/ir"
)

// Lower walks a parse tree and drives ir.Builder to produce a module.
// Semantic errors (undefined temporaries, unknown opcodes, bad operand
// counts) are recorded in rep and a placeholder value is substituted so
// lowering can continue and surface further errors; the caller must check
// rep.HasErrors before using the module.
func Lower(prog *Program, rep *errors.Reporter) *ir.Module {
	m := ir.NewModule()
	b := ir.NewBuilder(m, rep)
	lo := &lowerer{m: m, b: b, rep: rep}

	for _, d := range prog.Decls {
		switch {
		case d.Data != nil:
			lo.lowerData(d.Data, d.Export)
		case d.Func != nil:
			lo.lowerFunc(d.Func, d.Export)
		}
	}
	return m
}

type lowerer struct {
	m   *ir.Module
	b   *ir.Builder
	rep *errors.Reporter

	fn     *ir.Function
	env    map[string]ir.Value
	blocks map[string]*ir.Block

	// phi argument resolution is deferred until the whole function is
	// lowered, since incoming values may be defined in later blocks
	pending []pendingPhi

	defined map[string]bool // global symbols seen so far
}

type pendingPhi struct {
	phi  *ir.Phi
	stmt *PhiStmt
}

func (lo *lowerer) lowerData(d *DataDef, export bool) {
	name := strings.TrimPrefix(d.Name, "$")
	lo.checkRedefinition(name, d.Pos.Line, d.Pos.Column)
	def := &ir.DataDef{Name: name, Align: d.Align, Export: export}
	for _, item := range d.Items {
		if item.Zero != nil {
			def.Items = append(def.Items, ir.DataItem{IsZero: true, ZeroSize: *item.Zero})
			continue
		}
		cls := classOf(item.Cls)
		bits, ok := constBits(cls, item.Val)
		if !ok {
			lo.rep.Errorf(errors.ErrorNonConstant, item.Pos.Line, item.Pos.Column,
				"data item for $%s must be a constant", name)
			continue
		}
		def.Items = append(def.Items, ir.DataItem{Cls: cls, Bits: bits})
	}
	lo.m.Datas = append(lo.m.Datas, def)
}

func (lo *lowerer) lowerFunc(fd *FuncDef, export bool) {
	name := strings.TrimPrefix(fd.Name, "$")
	lo.checkRedefinition(name, fd.Pos.Line, fd.Pos.Column)
	ret := ir.ClassX
	if fd.Ret != "" {
		ret = classOf(fd.Ret)
	}
	f := lo.m.NewFunction(name, export, ret)
	lo.fn = f
	lo.env = make(map[string]ir.Value)
	lo.blocks = make(map[string]*ir.Block)
	lo.pending = nil
	lo.b.SetFunction(f)

	for _, bn := range fd.Blocks {
		label := labelName(bn.Label)
		if lo.blocks[label] != nil {
			lo.rep.Errorf(errors.ErrorRedefinition, bn.Pos.Line, bn.Pos.Column,
				"duplicate block label @%s", label)
			continue
		}
		lo.blocks[label] = f.NewBlock(label)
	}
	if f.Start == nil {
		return
	}

	// Signature parameters are the par declarations; they always land in
	// the entry block, in order.
	lo.b.SetBlock(f.Start)
	for _, p := range fd.Params {
		lo.env[p.Name] = lo.b.Par(classOf(p.Cls))
	}

	for _, bn := range fd.Blocks {
		blk := lo.blocks[labelName(bn.Label)]
		if blk == nil {
			continue
		}
		lo.b.SetBlock(blk)
		for _, st := range bn.Stmts {
			lo.lowerStmt(blk, st)
		}
	}

	for _, p := range lo.pending {
		for i, pair := range p.stmt.Args {
			target := lo.blocks[labelName(pair.Block)]
			if target == nil {
				lo.rep.Errorf(errors.ErrorUndefinedLabel, pair.Pos.Line, pair.Pos.Column,
					"phi references unknown label %s", pair.Block)
				continue
			}
			p.phi.Args[i].Block = target
			p.phi.Args[i].Val = lo.operand(pair.Val, p.phi.Cls)
		}
	}
}

func (lo *lowerer) lowerStmt(blk *ir.Block, st *Stmt) {
	switch {
	case st.Phi != nil:
		lo.lowerPhi(blk, st.Phi)
	case st.Jmp != nil:
		if t := lo.label(st.Jmp.Target, st.Jmp.Pos.Line, st.Jmp.Pos.Column); t != nil {
			lo.b.Jmp(t)
		}
	case st.Jnz != nil:
		t := lo.label(st.Jnz.True, st.Jnz.Pos.Line, st.Jnz.Pos.Column)
		f := lo.label(st.Jnz.False, st.Jnz.Pos.Line, st.Jnz.Pos.Column)
		if t != nil && f != nil {
			lo.b.Jnz(lo.operand(st.Jnz.Cond, ir.ClassW), t, f)
		}
	case st.Ret != nil:
		var v ir.Value
		if st.Ret.Val != nil {
			v = lo.operand(st.Ret.Val, lo.fn.RetCls)
		}
		lo.b.Ret(v)
	case st.Inst != nil:
		lo.lowerInst(st.Inst)
	}
}

func (lo *lowerer) lowerPhi(blk *ir.Block, ps *PhiStmt) {
	cls := classOf(ps.Cls)
	phi := &ir.Phi{Dest: lo.fn.NewTemp(cls), Cls: cls, Block: blk,
		Args: make([]ir.PhiArg, len(ps.Args))}
	blk.Phis = append(blk.Phis, phi)
	lo.bind(ps.Dest, phi.Dest, ps.Pos.Line)
	lo.pending = append(lo.pending, pendingPhi{phi: phi, stmt: ps})
}

// compareKinds maps a comparison mnemonic to its relation and operand
// class; the result class is always W.
var compareKinds = map[string]struct {
	kind ir.CompareKind
	cls  ir.Class
}{
	"ceqw": {ir.CmpEq, ir.ClassW}, "cnew": {ir.CmpNe, ir.ClassW},
	"csltw": {ir.CmpLt, ir.ClassW}, "cslew": {ir.CmpLe, ir.ClassW},
	"csgtw": {ir.CmpGt, ir.ClassW}, "csgew": {ir.CmpGe, ir.ClassW},
	"ceqs": {ir.CmpEq, ir.ClassS}, "cnes": {ir.CmpNe, ir.ClassS},
	"clts": {ir.CmpLt, ir.ClassS}, "cles": {ir.CmpLe, ir.ClassS},
	"cgts": {ir.CmpGt, ir.ClassS}, "cges": {ir.CmpGe, ir.ClassS},
}

func (lo *lowerer) lowerInst(is *InstStmt) {
	line, col := is.Pos.Line, is.Pos.Column
	cls := ir.ClassW
	if is.Dest != nil {
		cls = classOf(is.Dest.Cls)
	}
	arity := func(n int) bool {
		if len(is.Args) != n {
			lo.rep.Errorf(errors.ErrorWrongArity, line, col,
				"%s takes %d operand(s), got %d", is.Op, n, len(is.Args))
			return false
		}
		return true
	}
	arg := func(i int, want ir.Class) ir.Value {
		if i >= len(is.Args) {
			return lo.m.Interner.ConstInt(want, 0)
		}
		return lo.operand(is.Args[i], want)
	}

	var result ir.Value
	switch is.Op {
	case "add":
		if arity(2) {
			result = lo.b.Add(cls, arg(0, cls), arg(1, cls))
		}
	case "sub":
		if arity(2) {
			result = lo.b.Sub(cls, arg(0, cls), arg(1, cls))
		}
	case "mul":
		if arity(2) {
			result = lo.b.Mul(cls, arg(0, cls), arg(1, cls))
		}
	case "div":
		if arity(2) {
			result = lo.b.Div(cls, arg(0, cls), arg(1, cls))
		}
	case "rem":
		if arity(2) {
			result = lo.b.Rem(cls, arg(0, cls), arg(1, cls), line)
		}
	case "neg":
		if arity(1) {
			result = lo.b.Neg(cls, arg(0, cls))
		}
	case "extsw":
		if arity(1) {
			result = lo.b.ExtSW(arg(0, ir.ClassW))
		}
	case "stosi":
		if arity(1) {
			result = lo.b.StoSi(arg(0, ir.ClassS))
		}
	case "swtof":
		if arity(1) {
			result = lo.b.SwToF(arg(0, ir.ClassW))
		}
	case "loadw", "loadl", "loads":
		if arity(1) {
			result = lo.b.Load(loadStoreClass(is.Op), arg(0, ir.ClassL))
		}
	case "storew", "storel", "stores":
		// first operand is the address, second the stored value
		if arity(2) {
			c := loadStoreClass(is.Op)
			lo.b.Store(c, arg(0, ir.ClassL), arg(1, c))
		}
	case "alloc4", "alloc8":
		if arity(1) {
			n, ok := constIntOperand(is.Args[0])
			if !ok {
				lo.rep.Errorf(errors.ErrorNonConstant, line, col,
					"%s size must be an integer constant", is.Op)
				return
			}
			if is.Op == "alloc4" {
				result = lo.b.Alloc4(n)
			} else {
				result = lo.b.Alloc8(n)
			}
		}
	case "par":
		if arity(0) {
			result = lo.b.Par(cls)
		}
	case "arg":
		if arity(1) {
			v := lo.operandAuto(is.Args[0])
			lo.b.Arg(v.Class(), v)
		}
	case "call":
		if arity(1) {
			sym, ok := globalOperand(is.Args[0])
			if !ok {
				lo.rep.Errorf(errors.ErrorTypeMismatch, line, col,
					"call target must be a global symbol")
				return
			}
			callCls := ir.ClassX
			if is.Dest != nil {
				callCls = cls
			}
			result = lo.b.Call(callCls, sym)
		}
	case "copy":
		if arity(1) {
			result = lo.b.Copy(cls, arg(0, cls))
		}
	case "nop":
		if arity(0) {
			lo.b.Nop()
		}
	default:
		ck, ok := compareKinds[is.Op]
		if !ok {
			lo.rep.Errorf(errors.ErrorUnknownOpcode, line, col, "unknown opcode %q", is.Op)
			return
		}
		if arity(2) {
			result = lo.b.Compare(ck.kind, ck.cls, arg(0, ck.cls), arg(1, ck.cls))
		}
	}

	if is.Dest != nil {
		if result == nil {
			result = lo.m.Interner.ConstInt(cls, 0)
		}
		lo.bind(is.Dest.Name, result, line)
	}
}

func (lo *lowerer) bind(temp string, v ir.Value, line int) {
	if _, exists := lo.env[temp]; exists {
		lo.rep.Errorf(errors.ErrorRedefinition, line, 0, "temporary %s redefined", temp)
	}
	lo.env[temp] = v
}

// operand resolves one operand, interning constants at the class the
// consuming operation implies.
func (lo *lowerer) operand(o *Operand, want ir.Class) ir.Value {
	switch {
	case o.Temp != nil:
		if v, ok := lo.env[*o.Temp]; ok {
			return v
		}
		lo.rep.Errorf(errors.ErrorUndefinedTemp, o.Pos.Line, o.Pos.Column,
			"use of undefined temporary %s", *o.Temp)
		return lo.m.Interner.ConstInt(ir.ClassW, 0)
	case o.Global != nil:
		return lo.m.Interner.Global(strings.TrimPrefix(*o.Global, "$"))
	case o.Float != nil:
		f, _ := strconv.ParseFloat(strings.TrimPrefix(*o.Float, "s_"), 32)
		return lo.m.Interner.ConstFloat(float32(f))
	default:
		n, _ := strconv.ParseInt(*o.Int, 10, 64)
		cls := want
		if !cls.IsInt() {
			cls = ir.ClassW
		}
		return lo.m.Interner.ConstInt(cls, n)
	}
}

// operandAuto resolves an operand whose class is determined by the value
// itself (temps by their own class, floats as S, ints as W).
func (lo *lowerer) operandAuto(o *Operand) ir.Value {
	switch {
	case o.Float != nil:
		return lo.operand(o, ir.ClassS)
	default:
		return lo.operand(o, ir.ClassW)
	}
}

func (lo *lowerer) label(label string, line, col int) *ir.Block {
	if b, ok := lo.blocks[labelName(label)]; ok {
		return b
	}
	lo.rep.Errorf(errors.ErrorUndefinedLabel, line, col, "unknown label %s", label)
	return nil
}

func (lo *lowerer) checkRedefinition(sym string, line, col int) {
	if lo.defined == nil {
		lo.defined = make(map[string]bool)
	}
	if lo.defined[sym] {
		lo.rep.Errorf(errors.ErrorRedefinition, line, col, "symbol $%s redefined", sym)
	}
	lo.defined[sym] = true
}

func classOf(tag string) ir.Class {
	switch tag {
	case "l":
		return ir.ClassL
	case "s":
		return ir.ClassS
	case "x":
		return ir.ClassX
	default:
		return ir.ClassW
	}
}

func loadStoreClass(op string) ir.Class {
	return classOf(op[len(op)-1:])
}

// labelName strips the @ sigil and any trailing ".N" id the printer
// appends, so printed IR round-trips to stable block names.
func labelName(label string) string {
	name := strings.TrimPrefix(label, "@")
	if i := strings.LastIndex(name, "."); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			name = name[:i]
		}
	}
	return name
}

func constIntOperand(o *Operand) (int64, bool) {
	if o.Int == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(*o.Int, 10, 64)
	return n, err == nil
}

func globalOperand(o *Operand) (string, bool) {
	if o.Global == nil {
		return "", false
	}
	return strings.TrimPrefix(*o.Global, "$"), true
}

func constBits(cls ir.Class, o *Operand) (uint64, bool) {
	switch {
	case o.Float != nil:
		f, err := strconv.ParseFloat(strings.TrimPrefix(*o.Float, "s_"), 32)
		if err != nil {
			return 0, false
		}
		return uint64(math.Float32bits(float32(f))), true
	case o.Int != nil:
		n, err := strconv.ParseInt(*o.Int, 10, 64)
		if err != nil {
			return 0, false
		}
		if cls == ir.ClassS {
			return uint64(math.Float32bits(float32(n))), true
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
