// SPDX-License-Identifier: Apache-2.0

// Package analysis computes the derived, invalidatable fields IR blocks and
// functions carry: predecessor/successor lists, reverse post order,
// dominance, use-def chains, liveness, live intervals, and the
// leaf/inlinable flags. Every entrypoint here is a
// function-level pass: it reads the current IR and overwrites the
// designated fields on Block/Function. None of it mutates control flow or
// instructions — that is the job of package ssagen and package opt.
package analysis

import "cmid/internal/ir"

// FillPredsSuccs clears and recomputes every block's Preds/Succs from its
// terminator. A conditional jump whose true and false
// targets are identical contributes that target only once.
func FillPredsSuccs(f *ir.Function) {
	blocks := f.Blocks()
	for _, b := range blocks {
		b.Preds = nil
		b.Succs = nil
	}
	for _, b := range blocks {
		if b.Term == nil {
			continue
		}
		for _, s := range b.Term.Successors() {
			b.Succs = append(b.Succs, s)
			s.Preds = append(s.Preds, b)
		}
	}
}

// FillRPO computes a reverse post order from the entry block by DFS and
// stores it on the function. Blocks unreachable from entry
// are omitted. Edges into a return-terminated block do not extend the
// traversal past it (it has no successors to extend into).
func FillRPO(f *ir.Function) {
	if f.Start == nil {
		f.RPO = nil
		return
	}
	visited := make(map[*ir.Block]bool)
	var post []*ir.Block
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(f.Start)
	rpo := make([]*ir.Block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	f.RPO = rpo
}

// Reachable returns the set of blocks reachable from the function's entry,
// used by the unreachable-block-removal sub-pass of CFG simplification
//.
func Reachable(f *ir.Function) map[*ir.Block]bool {
	seen := make(map[*ir.Block]bool)
	if f.Start == nil {
		return seen
	}
	var stack []*ir.Block
	stack = append(stack, f.Start)
	seen[f.Start] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}
