// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"cmid/internal/analysis"
	"cmid/internal/ir"
)

// GCM is global code motion over established SSA: instructions are
// partitioned into pinned (allocations, loads, par, call, copy, and
// everything without a destination) and movable. Each movable
// instruction gets an earliest legal block (the deepest block dominated
// by all of its operands' defs, found by scheduling prerequisites first)
// and a latest legal block (the dominator-tree LCA of all of its uses,
// with phi uses attributed to the corresponding incoming edge). The
// instruction lands at the shallowest dominator-tree block on the
// earliest-to-latest path, immediately before its first user in that
// block. Returns whether any instruction changed blocks; use-def chains
// are rebuilt before returning.
func GCM(f *ir.Function) bool {
	analysis.FillPredsSuccs(f)
	analysis.FillRPO(f)
	analysis.FillDominators(f)
	analysis.FillUses(f)
	if f.Start == nil {
		return false
	}

	g := &gcm{
		f:            f,
		earlyBlock:   make(map[*ir.Instruction]*ir.Block),
		earlyDone:    make(map[*ir.Instruction]bool),
		lateDone:     make(map[*ir.Instruction]bool),
	}

	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			if gcmPinned(in) {
				g.earlyBlock[in] = b
				g.earlyDone[in] = true
				g.lateDone[in] = true
			}
		}
	}

	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			g.scheduleEarly(in)
		}
	}
	changed := false
	for _, b := range f.Blocks() {
		for _, in := range append([]*ir.Instruction(nil), b.Instrs...) {
			if g.scheduleLate(in) {
				changed = true
			}
		}
	}

	if changed {
		analysis.FillUses(f)
	}
	return changed
}

// gcmPinned reports whether an instruction must stay in its home block:
// allocations, loads, parameter receipt, calls, copies, anything
// side-effecting, and anything producing no value.
func gcmPinned(in *ir.Instruction) bool {
	if in.Dest == nil {
		return true
	}
	op := in.Op
	return op.IsAlloc() || op.IsLoad() || op.HasSideEffect() ||
		op == ir.OCall || op == ir.OPar || op == ir.OCopy || op == ir.ONop
}

type gcm struct {
	f          *ir.Function
	earlyBlock map[*ir.Instruction]*ir.Block
	earlyDone  map[*ir.Instruction]bool
	lateDone   map[*ir.Instruction]bool
}

// defInstr returns the (single, SSA) defining instruction of v, or nil if
// v is not a temp or is defined by a phi.
func defInstr(v ir.Value) *ir.Instruction {
	t, ok := v.(*ir.Temp)
	if !ok || len(t.Defs) == 0 {
		return nil
	}
	d := t.Defs[0]
	if d.IsPhi() {
		return nil
	}
	return d.Instr
}

// defBlock returns the block holding v's def, for temps whose def is a
// phi (pinned at its block by construction). nil for constants/globals.
func defBlock(v ir.Value) *ir.Block {
	t, ok := v.(*ir.Temp)
	if !ok || len(t.Defs) == 0 {
		return nil
	}
	return t.Defs[0].Block
}

// scheduleEarly computes the earliest legal block of a movable
// instruction: the deepest of its operands' def blocks (each operand def
// scheduled first), defaulting to the entry block when every operand is
// a constant or global.
func (g *gcm) scheduleEarly(in *ir.Instruction) {
	if g.earlyDone[in] {
		return
	}
	g.earlyDone[in] = true
	earliest := g.f.Start
	for i := 0; i < in.NArgs; i++ {
		var opBlock *ir.Block
		if def := defInstr(in.Args[i]); def != nil {
			g.scheduleEarly(def)
			opBlock = g.earlyBlock[def]
		} else {
			opBlock = defBlock(in.Args[i]) // phi def, pinned at its block
		}
		if opBlock != nil && opBlock.DomDepth > earliest.DomDepth {
			earliest = opBlock
		}
	}
	g.earlyBlock[in] = earliest
}

// scheduleLate computes the latest legal block (the LCA of all uses),
// picks the shallowest block on the earliest-to-latest dominator path,
// and moves the instruction there. Users are scheduled first so that by
// the time a producer moves, every consumer already sits in its final
// block. Returns whether the instruction changed blocks.
func (g *gcm) scheduleLate(in *ir.Instruction) bool {
	if g.lateDone[in] {
		return false
	}
	g.lateDone[in] = true

	var lca *ir.Block
	for _, u := range in.Dest.Uses {
		switch {
		case u.IsInstUse():
			g.scheduleLate(u.Instr)
			lca = analysis.DomTreeLCA(lca, u.Instr.Block)
		case u.IsPhiUse():
			// a phi consumes the value on the incoming edge, so the use
			// block is the predecessor the argument arrives from
			for _, a := range u.Phi.Args {
				if a.Val == ir.Value(in.Dest) {
					lca = analysis.DomTreeLCA(lca, a.Block)
				}
			}
		case u.IsJmpUse():
			lca = analysis.DomTreeLCA(lca, u.Block)
		}
	}
	if lca == nil {
		// dead value; leave it for DCE
		return false
	}

	earliest := g.earlyBlock[in]
	best := lca
	for b := lca; ; b = b.IDom {
		if b.DomDepth < best.DomDepth {
			best = b
		}
		if b == earliest || b.IDom == nil {
			break
		}
	}

	home := in.Block
	if best == home {
		return false
	}
	g.moveTo(in, home, best)
	return true
}

// moveTo removes in from its home block and reinserts it in dst,
// immediately before the first instruction there that uses its value (or
// at the end of the block when every user lives further down the
// dominator tree).
func (g *gcm) moveTo(in *ir.Instruction, home, dst *ir.Block) {
	kept := home.Instrs[:0:0]
	for _, other := range home.Instrs {
		if other != in {
			kept = append(kept, other)
		}
	}
	home.Instrs = kept

	users := make(map[*ir.Instruction]bool)
	for _, u := range in.Dest.Uses {
		if u.IsInstUse() {
			users[u.Instr] = true
		}
	}
	at := len(dst.Instrs)
	for i, other := range dst.Instrs {
		if users[other] {
			at = i
			break
		}
	}
	dst.Instrs = append(dst.Instrs, nil)
	copy(dst.Instrs[at+1:], dst.Instrs[at:])
	dst.Instrs[at] = in
	in.Block = dst
}
