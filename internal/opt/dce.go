// SPDX-License-Identifier: Apache-2.0
package opt

import "cmid/internal/ir"

// SimpleDCE is mark-and-sweep dead-code elimination:
// phase 1 marks always-alive instructions — stores, calls, par, arg, and
// the argument of a conditional/return terminator; phase 2 propagates
// liveness backward, marking the def of every operand an already-marked
// instruction or phi reads; phase 3 drops every unmarked phi and
// instruction. It invalidates use-def chains — analysis.FillUses must be
// re-run before any pass that reads them. analysis.FillUses must have
// already run before calling SimpleDCE itself, since it walks t.Defs.
func SimpleDCE(f *ir.Function) bool {
	markedI := make(map[*ir.Instruction]bool)
	markedP := make(map[*ir.Phi]bool)
	var worklist []any

	markInstr := func(in *ir.Instruction) {
		if !markedI[in] {
			markedI[in] = true
			worklist = append(worklist, in)
		}
	}
	markPhi := func(p *ir.Phi) {
		if !markedP[p] {
			markedP[p] = true
			worklist = append(worklist, p)
		}
	}
	markDefOf := func(v ir.Value) {
		t, ok := v.(*ir.Temp)
		if !ok {
			return
		}
		for _, d := range t.Defs {
			if d.IsPhi() {
				markPhi(d.Phi)
			} else {
				markInstr(d.Instr)
			}
		}
	}

	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			if in.Op.HasSideEffect() {
				markInstr(in)
			}
		}
		if b.Term != nil && (b.Term.Kind == ir.TermJnz || b.Term.Kind == ir.TermRet) && b.Term.Arg != nil {
			markDefOf(b.Term.Arg)
		}
	}

	for len(worklist) > 0 {
		item := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		switch v := item.(type) {
		case *ir.Instruction:
			for i := 0; i < v.NArgs; i++ {
				markDefOf(v.Args[i])
			}
		case *ir.Phi:
			for _, a := range v.Args {
				markDefOf(a.Val)
			}
		}
	}

	changed := false
	for _, b := range f.Blocks() {
		keptPhis := b.Phis[:0:0]
		for _, phi := range b.Phis {
			if markedP[phi] {
				keptPhis = append(keptPhis, phi)
			} else {
				changed = true
			}
		}
		b.Phis = keptPhis

		keptInstrs := b.Instrs[:0:0]
		for _, in := range b.Instrs {
			if markedI[in] {
				keptInstrs = append(keptInstrs, in)
			} else {
				changed = true
			}
		}
		b.Instrs = keptInstrs
	}
	return changed
}
