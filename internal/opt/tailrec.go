// SPDX-License-Identifier: Apache-2.0
package opt

import "cmid/internal/ir"

// TailRecursionEliminate rewrites self tail calls into jumps: when any
// block ends with `call $self` directly followed by a return, a loop
// target block is inserted after entry (taking over everything in entry
// except par and alloc instructions), and each tail call becomes a run
// of copies into the parameter temporaries followed by a jump to that
// target.
//
// Parameter temps acquire a second def per rewritten call site; the
// driver is expected to re-establish SSA-sensitive analyses afterwards.
func TailRecursionEliminate(f *ir.Function) bool {
	if f.Start == nil {
		return false
	}
	any := false
	for b := f.Start; b != nil; b = b.Next {
		if isTailRecursive(f, b) {
			any = true
			break
		}
	}
	if !any {
		return false
	}

	// restructure first: the tail call may sit in the entry block, in
	// which case it now lives in the freshly created target block
	target := makeLoopTarget(f)

	changed := false
	for b := f.Start; b != nil; b = b.Next {
		if isTailRecursive(f, b) && rewriteTailCall(f, b, target) {
			changed = true
		}
	}
	return changed
}

func isTailRecursive(f *ir.Function, b *ir.Block) bool {
	if len(b.Instrs) == 0 || b.Term == nil || b.Term.Kind != ir.TermRet {
		return false
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.Op != ir.OCall {
		return false
	}
	g, ok := last.Arg(0).(*ir.GlobalAddress)
	return ok && g.Sym == f.Name
}

// makeLoopTarget inserts the loop target block immediately after entry,
// moving everything except par and alloc instructions into it and
// handing it entry's terminator.
func makeLoopTarget(f *ir.Function) *ir.Block {
	entry := f.Start
	target := f.NewBlock("tail_loop")
	f.RemoveBlock(target)
	f.InsertBlockAfter(entry, target)

	kept := entry.Instrs[:0:0]
	for _, in := range entry.Instrs {
		if in.Op == ir.OPar || in.Op.IsAlloc() {
			kept = append(kept, in)
		} else {
			in.Block = target
			target.Instrs = append(target.Instrs, in)
		}
	}
	entry.Instrs = kept
	target.Term = entry.Term
	entry.Term = &ir.Terminator{Kind: ir.TermJmp, True: target}
	return target
}

// rewriteTailCall turns the arg run feeding the tail call into copies to
// the parameter temps, drops the call, and jumps to the loop target. The
// run must consist of exactly one arg per parameter directly before the
// call; anything else leaves the block untouched.
func rewriteTailCall(f *ir.Function, b *ir.Block, target *ir.Block) bool {
	n := len(f.Params)
	callIdx := len(b.Instrs) - 1
	if callIdx < n {
		return false
	}
	for i := 0; i < n; i++ {
		if b.Instrs[callIdx-n+i].Op != ir.OArg {
			return false
		}
	}

	for i := 0; i < n; i++ {
		in := b.Instrs[callIdx-n+i]
		param := f.Params[i]
		in.Op = ir.OCopy
		in.Cls = param.Cls
		in.Dest = param
		in.Args = [2]ir.Value{in.Args[0]}
		in.NArgs = 1
	}
	b.Instrs = b.Instrs[:callIdx]
	b.Term = &ir.Terminator{Kind: ir.TermJmp, True: target}
	return true
}
