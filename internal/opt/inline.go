// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"cmid/internal/analysis"
	"cmid/internal/ir"
)

// FillModuleFlags recomputes every function's Leaf and Inlinable flags,
// resolving call targets against the module's own function list.
func FillModuleFlags(m *ir.Module) {
	byName := make(map[string]*ir.Function, len(m.Funcs))
	for _, f := range m.Funcs {
		byName[f.Name] = f
	}
	for _, f := range m.Funcs {
		analysis.FillLeafAndInline(f, func(sym string) *ir.Function { return byName[sym] })
	}
}

// Inline rewrites call sites to inlinable callees in every function of
// the module. Per block, the first eligible call is expanded: the block
// is split at the call, the callee's blocks are cloned between the two
// halves with freshly numbered temporaries and labels, callee par
// instructions become copies from the caller's arg values, callee
// returns become a copy to the call's destination plus a jump to the
// join block, and callee allocations migrate to the caller's entry.
// Remaining calls in the split-off join block are visited as the walk
// reaches it. FillModuleFlags must have already run.
//
// A callee with several returns leaves the call destination with several
// copy defs; the driver is expected to re-establish SSA-sensitive
// analyses afterwards, and passes that require a single def skip such
// temps.
func Inline(m *ir.Module) bool {
	byName := make(map[string]*ir.Function, len(m.Funcs))
	for _, f := range m.Funcs {
		byName[f.Name] = f
	}

	changed := false
	for _, f := range m.Funcs {
		for blk := f.Start; blk != nil; blk = blk.Next {
			if inlineFirstCall(f, blk, byName) {
				changed = true
			}
		}
	}
	return changed
}

// inlineFirstCall expands the first eligible call in blk. The args slice
// tracks the run of arg instructions immediately preceding each call.
func inlineFirstCall(f *ir.Function, blk *ir.Block, byName map[string]*ir.Function) bool {
	var args []ir.Value
	argStart := -1

	for i, in := range blk.Instrs {
		switch in.Op {
		case ir.OArg:
			if argStart < 0 {
				argStart = i
			}
			args = append(args, in.Args[0])
		case ir.OCall:
			callee := calleeOf(in, byName)
			if callee == nil || !callee.Inlinable || callee == f || callee.Start == nil {
				args = nil
				argStart = -1
				continue
			}
			if argStart < 0 {
				argStart = i
			}

			join := f.NewBlock("inline_join")
			f.RemoveBlock(join)
			f.InsertBlockAfter(blk, join)
			join.Instrs = append([]*ir.Instruction(nil), blk.Instrs[i+1:]...)
			join.Term = blk.Term
			blk.Instrs = blk.Instrs[:argStart]
			blk.Term = nil

			cloneCallee(f, blk, join, callee, args, in.Dest)
			return true
		default:
			args = nil
			argStart = -1
		}
	}
	return false
}

func calleeOf(call *ir.Instruction, byName map[string]*ir.Function) *ir.Function {
	g, ok := call.Arg(0).(*ir.GlobalAddress)
	if !ok {
		return nil
	}
	return byName[g.Sym]
}

// cloneCallee copies every block of callee between prev and join,
// remapping temporaries and block references into the caller.
func cloneCallee(f *ir.Function, prev, join *ir.Block, callee *ir.Function, args []ir.Value, retTarget *ir.Temp) {
	blockMap := make(map[*ir.Block]*ir.Block)
	valueMap := make(map[*ir.Temp]*ir.Temp)
	var newBlocks []*ir.Block
	var srcBlocks []*ir.Block

	remapDest := func(t *ir.Temp) *ir.Temp {
		if t == nil {
			return nil
		}
		if nt, ok := valueMap[t]; ok {
			return nt
		}
		nt := f.NewTemp(t.Cls)
		valueMap[t] = nt
		return nt
	}
	remapVal := func(v ir.Value) ir.Value {
		if t, ok := v.(*ir.Temp); ok {
			if nt, ok := valueMap[t]; ok {
				return nt
			}
		}
		return v
	}

	// first pass: clone blocks, phis, and instructions
	p := prev
	argIndex := 0
	for src := callee.Start; src != nil; src = src.Next {
		nb := f.NewBlock(src.Name)
		f.RemoveBlock(nb)
		f.InsertBlockAfter(p, nb)
		p = nb
		blockMap[src] = nb
		newBlocks = append(newBlocks, nb)
		srcBlocks = append(srcBlocks, src)

		for _, phi := range src.Phis {
			np := &ir.Phi{Dest: remapDest(phi.Dest), Cls: phi.Cls, Block: nb,
				Args: append([]ir.PhiArg(nil), phi.Args...)}
			nb.Phis = append(nb.Phis, np)
		}
		for _, in := range src.Instrs {
			ni := &ir.Instruction{Op: in.Op, Cls: in.Cls, Args: in.Args, NArgs: in.NArgs, Block: nb}
			ni.Dest = remapDest(in.Dest)
			switch {
			case ni.Op.IsAlloc():
				f.Start.Instrs = append(f.Start.Instrs, ni)
				ni.Block = f.Start
			case ni.Op == ir.OPar:
				// parameter receipt becomes a copy from the call site's
				// argument value
				ni.Op = ir.OCopy
				if argIndex < len(args) {
					ni.Args = [2]ir.Value{args[argIndex]}
					ni.NArgs = 1
				} else {
					ni.Args = [2]ir.Value{}
					ni.NArgs = 0
				}
				argIndex++
				nb.Instrs = append(nb.Instrs, ni)
			default:
				nb.Instrs = append(nb.Instrs, ni)
			}
		}
	}

	// second pass: remap operands, phi incoming blocks, and terminators
	for i, nb := range newBlocks {
		src := srcBlocks[i]
		for _, phi := range nb.Phis {
			for j := range phi.Args {
				phi.Args[j].Val = remapVal(phi.Args[j].Val)
				if mapped, ok := blockMap[phi.Args[j].Block]; ok {
					phi.Args[j].Block = mapped
				}
			}
		}
		for _, in := range nb.Instrs {
			for j := 0; j < in.NArgs; j++ {
				in.Args[j] = remapVal(in.Args[j])
			}
		}
		// allocations hoisted to the caller entry also need remapping
		if src == callee.Start {
			for _, in := range f.Start.Instrs {
				for j := 0; j < in.NArgs; j++ {
					in.Args[j] = remapVal(in.Args[j])
				}
			}
		}

		term := src.Term
		if term == nil {
			nb.Term = nil
			continue
		}
		switch term.Kind {
		case ir.TermJmp:
			nb.Term = &ir.Terminator{Kind: ir.TermJmp, True: blockMap[term.True]}
		case ir.TermJnz:
			nb.Term = &ir.Terminator{Kind: ir.TermJnz, Arg: remapVal(term.Arg),
				True: blockMap[term.True], False: blockMap[term.False]}
		case ir.TermRet:
			if term.Arg != nil && retTarget != nil {
				nb.Instrs = append(nb.Instrs, &ir.Instruction{
					Op: ir.OCopy, Cls: retTarget.Cls, Dest: retTarget,
					Args: [2]ir.Value{remapVal(term.Arg)}, NArgs: 1, Block: nb,
				})
			}
			nb.Term = &ir.Terminator{Kind: ir.TermJmp, True: join}
		default:
			nb.Term = &ir.Terminator{Kind: ir.TermJmp, True: join}
		}
	}

	prev.Term = &ir.Terminator{Kind: ir.TermJmp, True: newBlocks[0]}
}
