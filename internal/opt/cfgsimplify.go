// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"cmid/internal/analysis"
	"cmid/internal/ir"
)

// CFGSimplify runs the three CFG-cleanup sub-passes in
// order, re-deriving predecessor/successor lists between each since every
// sub-pass changes the CFG's shape: empty-block removal, block merging,
// then unreachable-block removal.
func CFGSimplify(f *ir.Function) bool {
	analysis.FillPredsSuccs(f)
	c1 := RemoveEmptyBlocks(f)
	analysis.FillPredsSuccs(f)
	c2 := MergeBlocks(f)
	analysis.FillPredsSuccs(f)
	c3 := RemoveUnreachableBlocks(f)
	return c1 || c2 || c3
}

func isEmptyJmp(f *ir.Function, b *ir.Block, phiReferenced map[*ir.Block]bool) bool {
	return b != f.Start && len(b.Phis) == 0 && len(b.Instrs) == 0 &&
		b.Term != nil && b.Term.Kind == ir.TermJmp && !phiReferenced[b]
}

// collapseTarget chases a chain of empty unconditional-jump blocks to its
// final target, guarding against a degenerate empty block that jumps to
// itself.
func collapseTarget(f *ir.Function, b *ir.Block, phiReferenced map[*ir.Block]bool) *ir.Block {
	seen := make(map[*ir.Block]bool)
	for isEmptyJmp(f, b, phiReferenced) && !seen[b] {
		seen[b] = true
		b = b.Term.True
	}
	return b
}

// phiReferencedBlocks returns every block named as a phi incoming label.
// Such a block cannot be collapsed away: the phi argument is tied to the
// edge it ends, and rewriting the label to the jump target would break
// the one-argument-per-predecessor shape.
func phiReferencedBlocks(f *ir.Function) map[*ir.Block]bool {
	refs := make(map[*ir.Block]bool)
	for _, b := range f.Blocks() {
		for _, phi := range b.Phis {
			for _, a := range phi.Args {
				refs[a.Block] = true
			}
		}
	}
	return refs
}

// RemoveEmptyBlocks removes empty forwarding blocks: a block with no
// phis and no instructions ending in an unconditional jump is replaced,
// in every jump and branch target referring to it, by its own target,
// transitively collapsed through chains of such blocks. Blocks a phi
// names as an incoming label are left alone. It does not itself unlink
// blocks from the function — once nothing refers to a collapsed block it
// is dropped by the subsequent unreachable-block-removal sub-pass.
func RemoveEmptyBlocks(f *ir.Function) bool {
	changed := false
	phiRefs := phiReferencedBlocks(f)
	retarget := func(ref **ir.Block) {
		if *ref == nil {
			return
		}
		nt := collapseTarget(f, *ref, phiRefs)
		if nt != *ref {
			*ref = nt
			changed = true
		}
	}

	for _, b := range f.Blocks() {
		if b.Term == nil {
			continue
		}
		switch b.Term.Kind {
		case ir.TermJmp:
			retarget(&b.Term.True)
		case ir.TermJnz:
			retarget(&b.Term.True)
			retarget(&b.Term.False)
		}
	}
	return changed
}

// MergeBlocks merges straight-line block pairs: if a block has
// exactly one predecessor and that predecessor's terminator is an
// unconditional jump targeting it, the block's instructions are appended
// to the predecessor and the predecessor adopts its terminator. Blocks
// with phis never merge (the entry block, which structurally can never
// have a predecessor, is excluded for free by the len(Preds)==1 check).
func MergeBlocks(f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks() {
		if len(b.Phis) != 0 {
			continue
		}
		if len(b.Preds) != 1 {
			continue
		}
		pred := b.Preds[0]
		if pred.Term == nil || pred.Term.Kind != ir.TermJmp || pred.Term.True != b {
			continue
		}
		pred.Instrs = append(pred.Instrs, b.Instrs...)
		pred.Term = b.Term
		// the merged block's successors now arrive from pred
		for _, s := range b.Succs {
			for _, phi := range s.Phis {
				for i := range phi.Args {
					if phi.Args[i].Block == b {
						phi.Args[i].Block = pred
					}
				}
			}
		}
		f.RemoveBlock(b)
		changed = true
	}
	return changed
}

// RemoveUnreachableBlocks drops every block not reachable from entry
//. analysis.Reachable requires current Preds/Succs.
func RemoveUnreachableBlocks(f *ir.Function) bool {
	reachable := analysis.Reachable(f)
	changed := false
	for _, b := range f.Blocks() {
		if !reachable[b] {
			f.RemoveBlock(b)
			changed = true
		}
	}
	return changed
}
