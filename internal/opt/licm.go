// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"cmid/internal/analysis"
	"cmid/internal/ir"
)

// LICM is loop invariant code motion: for every
// natural loop whose header has at most two predecessors (shared-header
// loops are skipped to avoid the correctness hazards of choosing among
// multiple non-latch entries), it finds the maximal set of loop-invariant
// instructions and hoists them, in their original relative order, into a
// freshly inserted pre-header block.
func LICM(f *ir.Function) bool {
	analysis.FillPredsSuccs(f)
	analysis.FillRPO(f)
	analysis.FillDominators(f)
	analysis.FillUses(f) // invariance checks walk def sites
	loops := analysis.FindLoops(f)

	changed := false
	for _, lp := range loops {
		if len(lp.Header.Preds) > 2 {
			continue
		}
		invariant := findInvariants(lp)
		if len(invariant) == 0 {
			continue
		}
		if hoist(f, lp, invariant) {
			changed = true
		}
	}
	if changed {
		analysis.FillPredsSuccs(f)
		analysis.FillRPO(f)
		analysis.FillDominators(f)
	}
	return changed
}

// movableForLICM excludes side-effecting and non-deterministic ops (stores,
// calls, par/arg, comparisons), plus the ops global code motion also
// pins (loads, allocations, copies): none of these are safe to
// reorder relative to other loop iterations or hoist above a conditional
// loop entry.
func movableForLICM(op ir.Op) bool {
	if op.HasSideEffect() || op.IsCompare() || op.IsLoad() || op.IsAlloc() {
		return false
	}
	return op != ir.OCopy
}

// invariantOperand reports whether v, used inside lp, is itself invariant:
// a constant or global is always invariant; a temp defined outside the
// loop body is invariant; a temp defined by a phi inside the loop is never
// invariant (phi defs disqualify — they carry a value that may change each
// iteration); a temp defined by an already-marked-invariant instruction
// inside the loop is invariant. A temp with more than one def (left by
// inlining or tail-recursion rewriting) is never invariant.
func invariantOperand(lp *analysis.Loop, v ir.Value, invariant map[*ir.Instruction]bool) bool {
	t, ok := v.(*ir.Temp)
	if !ok {
		return true
	}
	if len(t.Defs) == 0 {
		return true
	}
	if len(t.Defs) > 1 {
		return false
	}
	d := t.Defs[0]
	if d.IsPhi() {
		return !lp.Body[d.Phi.Block]
	}
	in := d.Instr
	if !lp.Body[in.Block] {
		return true
	}
	return invariant[in]
}

// findInvariants iterates a worklist to a fixpoint: an instruction becomes
// invariant once its op is movable and every operand is invariant.
func findInvariants(lp *analysis.Loop) map[*ir.Instruction]bool {
	invariant := make(map[*ir.Instruction]bool)
	changed := true
	for changed {
		changed = false
		for b := range lp.Body {
			for _, in := range b.Instrs {
				if invariant[in] || !movableForLICM(in.Op) {
					continue
				}
				ok := true
				for i := 0; i < in.NArgs; i++ {
					if !invariantOperand(lp, in.Args[i], invariant) {
						ok = false
						break
					}
				}
				if ok {
					invariant[in] = true
					changed = true
				}
			}
		}
	}
	return invariant
}

// hoist inserts a pre-header immediately before the loop header, redirects
// every non-latch predecessor of the header (and the header's phi
// incoming-block labels) to it, and moves every invariant instruction out
// of its home block into the pre-header, preserving function-order
// relative order across blocks.
func hoist(f *ir.Function, lp *analysis.Loop, invariant map[*ir.Instruction]bool) bool {
	header := lp.Header

	var toMove []*ir.Instruction
	for _, b := range f.Blocks() {
		if !lp.Body[b] {
			continue
		}
		kept := b.Instrs[:0:0]
		for _, in := range b.Instrs {
			if invariant[in] {
				toMove = append(toMove, in)
			} else {
				kept = append(kept, in)
			}
		}
		b.Instrs = kept
	}
	if len(toMove) == 0 {
		return false
	}

	var prev *ir.Block
	for b := f.Start; b != nil; b = b.Next {
		if b.Next == header {
			prev = b
			break
		}
	}

	preheader := f.NewBlock(header.Name + ".ph")
	f.RemoveBlock(preheader)
	if prev == nil {
		preheader.Next = f.Start
		f.Start = preheader
	} else {
		f.InsertBlockAfter(prev, preheader)
	}
	preheader.Instrs = toMove
	for _, in := range toMove {
		in.Block = preheader
	}
	preheader.Term = &ir.Terminator{Kind: ir.TermJmp, True: header}

	isLatch := make(map[*ir.Block]bool, len(lp.Latches))
	for _, l := range lp.Latches {
		isLatch[l] = true
	}
	for _, pred := range header.Preds {
		if isLatch[pred] || pred.Term == nil {
			continue
		}
		switch pred.Term.Kind {
		case ir.TermJmp:
			if pred.Term.True == header {
				pred.Term.True = preheader
			}
		case ir.TermJnz:
			if pred.Term.True == header {
				pred.Term.True = preheader
			}
			if pred.Term.False == header {
				pred.Term.False = preheader
			}
		}
	}
	for _, phi := range header.Phis {
		for i := range phi.Args {
			if !isLatch[phi.Args[i].Block] {
				phi.Args[i].Block = preheader
			}
		}
	}
	return true
}
