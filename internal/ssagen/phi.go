// SPDX-License-Identifier: Apache-2.0
package ssagen

import "cmid/internal/ir"

// phiOf associates inserted phis with the promotion they resolve, so
// Rename can recognize and patch them without re-deriving the mapping.
type phiOf map[*ir.Phi]*Promotion

// InsertPhis computes, for each promotion, its set of definition blocks and
// inserts a phi at every block in the iterated dominance frontier of that
// set: the classical Cytron et al. algorithm. A promotion
// defined in only one block gets no phi. Each inserted phi gets one
// argument per predecessor, initially pointing at the promotion's Var
// placeholder — Rename resolves every such placeholder argument to a real
// SSA name. FillDominanceFrontier must have already run.
func InsertPhis(f *ir.Function, promos []*Promotion) phiOf {
	owners := make(phiOf)
	for _, p := range promos {
		defBlocks := make(map[*ir.Block]bool)
		for _, d := range p.Defs {
			defBlocks[d.Block] = true
		}
		if len(defBlocks) <= 1 {
			continue
		}

		hasPhi := make(map[*ir.Block]bool)
		worklist := make([]*ir.Block, 0, len(defBlocks))
		for b := range defBlocks {
			worklist = append(worklist, b)
		}

		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, d := range b.DomFrontier {
				if hasPhi[d] {
					continue
				}
				hasPhi[d] = true
				args := make([]ir.PhiArg, len(d.Preds))
				for i, pred := range d.Preds {
					args[i] = ir.PhiArg{Block: pred, Val: p.Var}
				}
				phi := &ir.Phi{Dest: f.NewTemp(p.Cls), Cls: p.Cls, Block: d, Args: args}
				d.Phis = append(d.Phis, phi)
				owners[phi] = p
				if !defBlocks[d] {
					worklist = append(worklist, d)
				}
			}
		}
	}
	return owners
}
