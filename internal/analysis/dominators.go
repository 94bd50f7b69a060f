// SPDX-License-Identifier: Apache-2.0
package analysis

import "cmid/internal/ir"

// FillDominators computes the immediate dominator of every block reachable
// from entry, using the classic iterative dataflow formulation: dom(entry) = {entry}; dom(b) = {b} ∪ ⋂ dom(p) for p ∈ preds(b),
// iterated to a fixpoint over reverse post order. FillRPO and
// FillPredsSuccs must have already run.
//
// It then derives IDom, DomChildren (the inverse of immediate-dominator),
// DomDepth, and the Doms closure ("exclude B from the CFG, run
// reachability from entry, everything
// unreachable dominates B" is equivalent to this dataflow fixpoint and is
// not separately implemented).
func FillDominators(f *ir.Function) {
	rpo := f.RPO
	if len(rpo) == 0 {
		return
	}
	entry := rpo[0]

	order := make(map[*ir.Block]int, len(rpo))
	for i, b := range rpo {
		order[b] = i
	}

	idom := make(map[*ir.Block]*ir.Block, len(rpo))
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *ir.Block
			for _, p := range b.Preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, order)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range rpo {
		b.IDom = nil
		b.DomChildren = nil
		b.DomFrontier = nil
		b.DomDepth = 0
		b.Doms = nil
	}
	for _, b := range rpo {
		if b == entry {
			continue
		}
		d := idom[b]
		b.IDom = d
		d.DomChildren = append(d.DomChildren, b)
	}

	var setDepth func(b *ir.Block, depth int)
	setDepth = func(b *ir.Block, depth int) {
		b.DomDepth = depth
		for _, c := range b.DomChildren {
			setDepth(c, depth+1)
		}
	}
	setDepth(entry, 0)

	for _, b := range rpo {
		b.Doms = map[*ir.Block]bool{b: true}
	}
	// Process in dominator-tree postorder so a parent's Doms set can be
	// built purely from what its children already computed.
	var postorder []*ir.Block
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		for _, c := range b.DomChildren {
			visit(c)
		}
		postorder = append(postorder, b)
	}
	visit(entry)
	for _, b := range postorder {
		for _, c := range b.DomChildren {
			for d := range c.Doms {
				b.Doms[d] = true
			}
		}
	}
}

func intersect(a, b *ir.Block, idom map[*ir.Block]*ir.Block, order map[*ir.Block]int) *ir.Block {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

// FillDominanceFrontier computes each block's dominance frontier: for every CFG edge (U→V), walk X up the dominator tree
// from U (inclusive) until X strictly dominates V, adding V to each
// visited X's frontier. FillDominators must have already run.
func FillDominanceFrontier(f *ir.Function) {
	for _, b := range f.RPO {
		b.DomFrontier = nil
	}
	seen := make(map[*ir.Block]map[*ir.Block]bool)
	for _, b := range f.RPO {
		seen[b] = make(map[*ir.Block]bool)
	}
	for _, v := range f.RPO {
		if len(v.Preds) < 2 {
			continue
		}
		for _, u := range v.Preds {
			x := u
			for x != nil && x != v.IDom {
				if !seen[x][v] {
					seen[x][v] = true
					x.DomFrontier = append(x.DomFrontier, v)
				}
				x = x.IDom
			}
		}
	}
}

// StrictlyDominates reports whether a strictly dominates b (a dominates b
// and a != b). FillDominators must have already run.
func StrictlyDominates(a, b *ir.Block) bool {
	return a != b && a.Dominates(b)
}
