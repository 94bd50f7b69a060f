// SPDX-License-Identifier: Apache-2.0
package analysis

import "cmid/internal/ir"

// Loop is a natural loop: a header block that
// dominates every block in its Body, reached via at least one back edge
// (an edge U→Header where Header dominates U).
type Loop struct {
	Header *ir.Block
	Body   map[*ir.Block]bool
	// Latches are the blocks with a back edge into Header.
	Latches []*ir.Block
}

// FindLoops discovers every natural loop in f by scanning CFG edges for
// back edges (U→V where V dominates U) and, for each, walking predecessors
// backward from U until Header is reached, collecting every block touched
// into the loop body. Multiple back edges sharing a header contribute to
// one Loop. FillDominators and FillPredsSuccs must have already run.
func FindLoops(f *ir.Function) []*Loop {
	byHeader := make(map[*ir.Block]*Loop)
	var order []*ir.Block

	for _, u := range f.RPO {
		for _, v := range succsOf(u) {
			if !v.Dominates(u) {
				continue
			}
			lp, ok := byHeader[v]
			if !ok {
				lp = &Loop{Header: v, Body: map[*ir.Block]bool{v: true}}
				byHeader[v] = lp
				order = append(order, v)
			}
			lp.Latches = append(lp.Latches, u)
			growBody(lp, u)
		}
	}

	loops := make([]*Loop, 0, len(order))
	for _, h := range order {
		loops = append(loops, byHeader[h])
	}
	return loops
}

func succsOf(b *ir.Block) []*ir.Block {
	if b.Term == nil {
		return nil
	}
	switch b.Term.Kind {
	case ir.TermJmp:
		return []*ir.Block{b.Term.True}
	case ir.TermJnz:
		return []*ir.Block{b.Term.True, b.Term.False}
	default:
		return nil
	}
}

// growBody walks predecessors backward from the latch, adding every block
// reached (stopping at blocks already in the body, which includes the
// header) until the walk is exhausted.
func growBody(lp *Loop, latch *ir.Block) {
	if lp.Body[latch] {
		return
	}
	var stack []*ir.Block
	lp.Body[latch] = true
	stack = append(stack, latch)
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range b.Preds {
			if !lp.Body[p] {
				lp.Body[p] = true
				stack = append(stack, p)
			}
		}
	}
}
