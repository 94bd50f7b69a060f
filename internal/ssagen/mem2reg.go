// SPDX-License-Identifier: Apache-2.0

// Package ssagen implements SSA construction: Mem2Reg,
// phi insertion via the dominance-frontier algorithm, and dominator-tree
// renaming. All per-function state (the rename stacks, the candidate
// variable list) lives in values this package threads explicitly — never
// in file-scope globals — so a compilation is reentrant.
package ssagen

import "cmid/internal/ir"

// Promotion records one entry-block allocation Mem2Reg decided to promote
// to SSA form: Var is the allocation's original destination temporary,
// reused as the (pre-renaming) placeholder identifying the variable; Defs
// are the store-derived copy instructions, one fresh SSA name per store;
// Uses are the load-derived copy instructions, whose sole operand is still
// the Var placeholder until Rename resolves it.
type Promotion struct {
	Var  *ir.Temp
	Cls  ir.Class
	Defs []*ir.Instruction
	Uses []*ir.Instruction
}

// Mem2Reg promotes every entry-block allocation whose only uses are
// loads/stores of it to SSA copies: the alloc becomes a
// nop, each store of value V becomes `temp = copy V` (a fresh definition),
// each load becomes `temp_user = copy Var` (Var is the placeholder,
// resolved later by Rename). Allocations with any other use (address
// escapes beyond load/store) are left untouched — Mem2Reg fails soft.
func Mem2Reg(f *ir.Function) []*Promotion {
	entry := f.Start
	if entry == nil {
		return nil
	}
	var promos []*Promotion
	for _, in := range append([]*ir.Instruction(nil), entry.Instrs...) {
		if !in.Op.IsAlloc() || in.Dest == nil {
			continue
		}
		p := promotable(f, in.Dest)
		if p == nil {
			continue
		}
		in.Op = ir.ONop
		in.Dest = nil
		in.NArgs = 0
		in.Args = [2]ir.Value{}
		promos = append(promos, p)
	}
	return promos
}

// promotable checks whether every use of the allocation's destination
// temporary var is a load or store through it, and rewrites those
// loads/stores into copy instructions if so. It returns nil (performing no
// rewrite) if any other kind of use is found.
func promotable(f *ir.Function, varTemp *ir.Temp) *Promotion {
	type site struct {
		block *ir.Block
		instr *ir.Instruction
		isLoad bool
	}
	var sites []site
	cls := ir.ClassW
	clsSeen := false

	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			switch {
			case in.Op.IsLoad() && in.NArgs == 1 && in.Args[0] == ir.Value(varTemp):
				sites = append(sites, site{b, in, true})
				if !clsSeen {
					cls = in.Cls
					clsSeen = true
				}
			case in.Op.IsStore() && in.NArgs == 2 && in.Args[0] == ir.Value(varTemp):
				sites = append(sites, site{b, in, false})
				if !clsSeen {
					cls = in.Cls
					clsSeen = true
				}
			default:
				for i := 0; i < in.NArgs; i++ {
					if in.Args[i] == ir.Value(varTemp) {
						return nil // escapes beyond load/store
					}
				}
			}
		}
		if b.Term != nil && b.Term.Arg == ir.Value(varTemp) {
			return nil
		}
		for _, phi := range b.Phis {
			for _, a := range phi.Args {
				if a.Val == ir.Value(varTemp) {
					return nil
				}
			}
		}
	}

	p := &Promotion{Var: varTemp, Cls: cls}
	for _, s := range sites {
		s.instr.Block = s.block
		if s.isLoad {
			s.instr.Op = ir.OCopy
			s.instr.Args = [2]ir.Value{varTemp}
			s.instr.NArgs = 1
			s.instr.Cls = s.instr.Dest.Cls
			p.Uses = append(p.Uses, s.instr)
		} else {
			val := s.instr.Args[1]
			dest := f.NewTemp(s.instr.Cls)
			s.instr.Op = ir.OCopy
			s.instr.Dest = dest
			s.instr.Args = [2]ir.Value{val}
			s.instr.NArgs = 1
			p.Defs = append(p.Defs, s.instr)
		}
	}
	return p
}
