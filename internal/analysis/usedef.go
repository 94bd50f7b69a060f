// SPDX-License-Identifier: Apache-2.0
package analysis

import "cmid/internal/ir"

// FillUses clears every temporary's use list and def list, then rescans
// every phi, instruction, and terminator argument in the function,
// rebuilding both. Any pass that adds, removes, or
// rewrites instructions/phis must call this again before a downstream
// pass that relies on use-def chains runs.
func FillUses(f *ir.Function) {
	for _, t := range f.Temps() {
		t.Defs = nil
		t.Uses = nil
	}
	for _, b := range f.Blocks() {
		for _, phi := range b.Phis {
			if phi.Dest != nil {
				phi.Dest.Defs = append(phi.Dest.Defs, ir.Def{Phi: phi, Block: b})
			}
			for _, a := range phi.Args {
				addUse(a.Val, ir.Use{Phi: phi, Block: a.Block})
			}
		}
		for _, in := range b.Instrs {
			in.Block = b
			if in.Dest != nil {
				in.Dest.Defs = append(in.Dest.Defs, ir.Def{Instr: in, Block: b})
			}
			for i := 0; i < in.NArgs; i++ {
				addUse(in.Args[i], ir.Use{Instr: in, Block: b})
			}
		}
		if b.Term != nil && (b.Term.Kind == ir.TermJnz || b.Term.Kind == ir.TermRet) && b.Term.Arg != nil {
			addUse(b.Term.Arg, ir.Use{IsTerm: true, Block: b})
		}
	}
}

func addUse(v ir.Value, u ir.Use) {
	if t, ok := v.(*ir.Temp); ok {
		t.Uses = append(t.Uses, u)
	}
}

// FillLeafAndInline sets Function.Leaf (no call instruction) and
// Function.Inlinable (never directly calls itself — indirect recursion is
// structurally impossible since a declaration cannot be separated from
// its definition in this language). callee looks up
// a function by the symbol name a call instruction targets.
func FillLeafAndInline(f *ir.Function, callee func(sym string) *ir.Function) {
	f.Leaf = true
	f.Inlinable = true
	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			if in.Op != ir.OCall {
				continue
			}
			f.Leaf = false
			g, ok := in.Arg(0).(*ir.GlobalAddress)
			if !ok {
				continue
			}
			target := callee(g.Sym)
			if target == f {
				f.Inlinable = false
			}
		}
	}
}
