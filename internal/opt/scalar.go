// SPDX-License-Identifier: Apache-2.0

// Package opt implements the mid-end's scalar, loop, code-motion, and
// procedure-level optimizations: local and global
// copy/constant propagation, global value numbering, dead-code
// elimination, CFG simplification, loop-invariant code motion, global
// code motion, inlining, and tail-recursion elimination. Each transform is
// exposed as a plain function over *ir.Function or *ir.Module; package
// pass wires them into pass.Pass values for the pipeline.
package opt

import "cmid/internal/ir"

// LocalPropagate is the per-block half of
// local constant & copy propagation: walking one block in instruction
// order, it maintains a value-replacement map, rewrites each
// instruction's operands through it, and re-attempts folding after the
// rewrite; a folded result or a plain copy source is recorded as the
// substitution for that instruction's destination. A conditional jump
// whose condition folds to a constant becomes unconditional, and so does
// one whose two targets are the same block. Returns whether anything
// changed.
func LocalPropagate(f *ir.Function, interner *ir.ValueInterner) bool {
	changed := false
	folder := ir.NewFolder(interner)
	for _, b := range f.Blocks() {
		repl := make(map[*ir.Temp]ir.Value)
		for _, phi := range b.Phis {
			// a phi with a single incoming argument is just a copy;
			// recording the substitution is not itself a change
			if len(phi.Args) == 1 && phi.Dest != nil {
				repl[phi.Dest] = phi.Args[0].Val
			}
		}
		for _, in := range b.Instrs {
			for i := 0; i < in.NArgs; i++ {
				if v, ok := rewrite(in.Args[i], repl); ok {
					in.Args[i] = v
					changed = true
				}
			}
			if in.Dest == nil {
				continue
			}
			if in.Op == ir.OCopy {
				repl[in.Dest] = in.Args[0]
				continue
			}
			if in.NArgs == 1 {
				if v, ok := folder.FoldUnary(in.Op, in.Cls, in.Args[0]); ok {
					repl[in.Dest] = v
					changed = true
				}
			} else if in.NArgs == 2 {
				if v, ok := folder.FoldBinary(in.Op, in.Cls, in.Args[0], in.Args[1]); ok {
					repl[in.Dest] = v
					changed = true
				}
			}
		}
		if b.Term != nil && b.Term.Arg != nil {
			if v, ok := rewrite(b.Term.Arg, repl); ok {
				b.Term.Arg = v
				changed = true
			}
		}
		if b.Term != nil && b.Term.Kind == ir.TermJnz {
			if c, ok := b.Term.Arg.(*ir.ConstBits); ok {
				if c.Bits != 0 {
					b.Term = &ir.Terminator{Kind: ir.TermJmp, True: b.Term.True}
				} else {
					b.Term = &ir.Terminator{Kind: ir.TermJmp, True: b.Term.False}
				}
				changed = true
			} else if b.Term.True == b.Term.False {
				b.Term = &ir.Terminator{Kind: ir.TermJmp, True: b.Term.True}
				changed = true
			}
		}
	}
	return changed
}

// rewrite follows v through the replacement map to its final substitution,
// chasing chains of copies recorded earlier in the same block.
func rewrite(v ir.Value, repl map[*ir.Temp]ir.Value) (ir.Value, bool) {
	t, ok := v.(*ir.Temp)
	if !ok {
		return v, false
	}
	cur, ok := repl[t]
	if !ok {
		return v, false
	}
	for {
		ct, ok := cur.(*ir.Temp)
		if !ok {
			break
		}
		next, ok := repl[ct]
		if !ok {
			break
		}
		cur = next
	}
	return cur, true
}

// GlobalCopyPropagate is function-wide copy
// propagation: for every temp whose sole def is `copy x`, it chases the
// chain of copies to its final source and rewrites every use — instruction
// operand, phi argument, and terminator argument — to that source.
// analysis.FillUses must have already run.
func GlobalCopyPropagate(f *ir.Function) bool {
	chain := make(map[*ir.Temp]ir.Value)
	for _, t := range f.Temps() {
		if len(t.Defs) != 1 || t.Defs[0].IsPhi() {
			continue
		}
		in := t.Defs[0].Instr
		if in.Op == ir.OCopy {
			chain[t] = in.Args[0]
		}
	}
	finalSrc := func(v ir.Value) (ir.Value, bool) {
		t, ok := v.(*ir.Temp)
		if !ok {
			return v, false
		}
		src, ok := chain[t]
		if !ok {
			return v, false
		}
		changedAny := false
		for {
			st, ok := src.(*ir.Temp)
			if !ok {
				break
			}
			next, ok := chain[st]
			if !ok {
				break
			}
			src = next
			changedAny = true
		}
		return src, !identical(v, src) || changedAny
	}

	changed := false
	for _, b := range f.Blocks() {
		for _, phi := range b.Phis {
			for i := range phi.Args {
				if v, ok := finalSrc(phi.Args[i].Val); ok {
					phi.Args[i].Val = v
					changed = true
				}
			}
		}
		for _, in := range b.Instrs {
			for i := 0; i < in.NArgs; i++ {
				if v, ok := finalSrc(in.Args[i]); ok {
					in.Args[i] = v
					changed = true
				}
			}
		}
		if b.Term != nil && b.Term.Arg != nil {
			if v, ok := finalSrc(b.Term.Arg); ok {
				b.Term.Arg = v
				changed = true
			}
		}
	}
	return changed
}

func identical(a, b ir.Value) bool { return a == b }
