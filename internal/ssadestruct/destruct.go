// SPDX-License-Identifier: Apache-2.0

// Package ssadestruct translates out of SSA form: every phi is turned
// into a parallel copy at the end of each predecessor (splitting
// critical edges where the predecessor branches), and each parallel copy
// is then serialized into plain copies with cycles broken through a
// fresh temporary. A small cleanup pass coalesces copies whose producer
// can adopt the destination directly.
//
// While a parallel copy is in flight it is represented by a parcopy
// marker instruction in the edge block; serialization replaces the
// marker with the emitted copy run. Two-element cycles first serialize
// to a swap marker, which LowerSwaps expands before the backend ever
// sees the function. Neither marker survives a completed Destruct.
package ssadestruct

import (
	"cmid/internal/analysis"
	"cmid/internal/ir"
)

// Copy is one pending assignment of a parallel copy group.
type Copy struct {
	Dest *ir.Temp
	Src  ir.Value
}

// Destruct removes every phi in f. Returns whether anything changed.
func Destruct(f *ir.Function) bool {
	analysis.FillPredsSuccs(f)
	groups := InsertParallelCopies(f)
	if len(groups) == 0 {
		return false
	}
	Sequentialize(f, groups)
	LowerSwaps(f)
	analysis.FillPredsSuccs(f)
	return true
}

// InsertParallelCopies rewrites each phi-carrying block: for every
// predecessor it places one parcopy marker instruction at the end of the
// edge block — the predecessor itself, or a fresh splitter block when
// the predecessor ends in a conditional jump — and associates the
// pending copies with that marker. The phis are removed. Preds must be
// current.
func InsertParallelCopies(f *ir.Function) map[*ir.Instruction][]Copy {
	groups := make(map[*ir.Instruction][]Copy)
	markers := make(map[*ir.Block]*ir.Instruction)

	markerFor := func(edge *ir.Block) *ir.Instruction {
		if m, ok := markers[edge]; ok {
			return m
		}
		m := &ir.Instruction{Op: ir.OParCopy, Cls: ir.ClassX, Block: edge}
		edge.Instrs = append(edge.Instrs, m)
		markers[edge] = m
		groups[m] = nil
		return m
	}

	for _, b := range f.Blocks() {
		if len(b.Phis) == 0 {
			continue
		}
		for _, pred := range b.Preds {
			edge := pred
			if pred.Term != nil && pred.Term.Kind == ir.TermJnz {
				edge = splitEdge(f, pred, b)
				for _, phi := range b.Phis {
					for i := range phi.Args {
						if phi.Args[i].Block == pred {
							phi.Args[i].Block = edge
						}
					}
				}
			}
			markerFor(edge)
		}

		for _, phi := range b.Phis {
			for _, a := range phi.Args {
				m := markerFor(a.Block)
				groups[m] = append(groups[m], Copy{Dest: phi.Dest, Src: a.Val})
			}
		}
		b.Phis = nil
	}
	return groups
}

// splitEdge inserts a fresh block on the critical edge pred→succ: the
// new block jumps to succ and pred's matching branch targets are
// redirected to it.
func splitEdge(f *ir.Function, pred, succ *ir.Block) *ir.Block {
	nb := f.NewBlock("parallel_copy")
	f.RemoveBlock(nb)
	f.InsertBlockAfter(pred, nb)
	nb.Term = &ir.Terminator{Kind: ir.TermJmp, True: succ}
	if pred.Term.True == succ {
		pred.Term.True = nb
	}
	if pred.Term.False == succ {
		pred.Term.False = nb
	}
	return nb
}

// Sequentialize replaces every parcopy marker with an equivalent run of
// sequential copies, in the Briggs/May style: a copy whose destination
// no pending copy still reads is ready and emits immediately; when only
// cycles remain, a two-element cycle emits a swap marker and a longer
// cycle is broken by saving the victim into a fresh temporary of the
// same class.
func Sequentialize(f *ir.Function, groups map[*ir.Instruction][]Copy) {
	scratch := make(map[ir.Class]*ir.Temp)
	scratchFor := func(cls ir.Class) *ir.Temp {
		if t, ok := scratch[cls]; ok {
			return t
		}
		t := f.NewTemp(cls)
		scratch[cls] = t
		return t
	}

	for _, b := range f.Blocks() {
		for idx, in := range b.Instrs {
			if in.Op != ir.OParCopy {
				continue
			}
			run := sequentializeGroup(groups[in], scratchFor)
			for _, c := range run {
				c.Block = b
			}
			instrs := make([]*ir.Instruction, 0, len(b.Instrs)-1+len(run))
			instrs = append(instrs, b.Instrs[:idx]...)
			instrs = append(instrs, run...)
			instrs = append(instrs, b.Instrs[idx+1:]...)
			b.Instrs = instrs
			break // one marker per block
		}
	}
}

func sequentializeGroup(pc []Copy, scratchFor func(ir.Class) *ir.Temp) []*ir.Instruction {
	// self-copies carry no information
	pending := pc[:0:0]
	for _, c := range pc {
		if ir.Value(c.Dest) != c.Src {
			pending = append(pending, c)
		}
	}

	loc := make(map[ir.Value]ir.Value)
	pred := make(map[ir.Value]ir.Value)
	var ready, todo []ir.Value
	for _, c := range pending {
		loc[c.Dest] = nil
		pred[c.Src] = nil
	}
	for _, c := range pending {
		loc[c.Src] = c.Src
		pred[c.Dest] = c.Src
		todo = append(todo, c.Dest)
	}
	for _, c := range pending {
		if loc[c.Dest] == nil {
			ready = append(ready, c.Dest)
		}
	}

	var out []*ir.Instruction
	emit := func(op ir.Op, dest ir.Value, src ir.Value) {
		dt := dest.(*ir.Temp)
		out = append(out, &ir.Instruction{
			Op: op, Cls: dt.Cls, Dest: dt, Args: [2]ir.Value{src}, NArgs: 1,
		})
	}

	for len(todo) > 0 {
		for len(ready) > 0 {
			b := ready[len(ready)-1]
			ready = ready[:len(ready)-1]
			a := pred[b]
			c := loc[a]
			emit(ir.OCopy, b, c)
			loc[a] = b
			if a == c && pred[a] != nil {
				ready = append(ready, a)
			}
		}
		b := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if loc[b] != b {
			continue // already relocated or never a blocking source
		}
		a := pred[b]
		if pred[a] == b && loc[a] == a {
			// pure two-element cycle: a single swap marker
			bt := b.(*ir.Temp)
			out = append(out, &ir.Instruction{
				Op: ir.OSwap, Cls: bt.Cls, Args: [2]ir.Value{b, a}, NArgs: 2,
			})
			loc[b] = a
			loc[a] = b
			continue
		}
		n := scratchFor(b.(*ir.Temp).Cls)
		emit(ir.OCopy, n, b)
		loc[b] = n
		ready = append(ready, b)
	}
	return out
}

// LowerSwaps expands every swap marker into three copies through a fresh
// temporary of the swapped class.
func LowerSwaps(f *ir.Function) {
	for _, b := range f.Blocks() {
		var instrs []*ir.Instruction
		for _, in := range b.Instrs {
			if in.Op != ir.OSwap {
				instrs = append(instrs, in)
				continue
			}
			x := in.Args[0].(*ir.Temp)
			y := in.Args[1].(*ir.Temp)
			n := f.NewTemp(x.Cls)
			instrs = append(instrs,
				&ir.Instruction{Op: ir.OCopy, Cls: x.Cls, Dest: n, Args: [2]ir.Value{x}, NArgs: 1, Block: b},
				&ir.Instruction{Op: ir.OCopy, Cls: x.Cls, Dest: x, Args: [2]ir.Value{y}, NArgs: 1, Block: b},
				&ir.Instruction{Op: ir.OCopy, Cls: y.Cls, Dest: y, Args: [2]ir.Value{n}, NArgs: 1, Block: b},
			)
		}
		b.Instrs = instrs
	}
}

// CopyCleanup rewrites `%d = copy %s` into nothing when %s is defined by
// a same-block instruction with no other use: the producer adopts %d as
// its destination and the copy becomes a nop. par producers are skipped
// (their destination is part of the call protocol). Rebuilds use-def
// chains before scanning and returns whether anything changed.
func CopyCleanup(f *ir.Function) bool {
	analysis.FillUses(f)
	changed := false
	for _, b := range f.Blocks() {
		for _, in := range b.Instrs {
			if in.Op != ir.OCopy || in.Dest == nil {
				continue
			}
			src, ok := in.Args[0].(*ir.Temp)
			if !ok || len(src.Defs) != 1 || len(src.Uses) != 1 || src.Defs[0].IsPhi() {
				continue
			}
			def := src.Defs[0].Instr
			if src.Defs[0].Block != b || def.Op == ir.OPar {
				continue
			}
			def.Dest = in.Dest
			in.Op = ir.ONop
			in.Dest = nil
			in.Args = [2]ir.Value{}
			in.NArgs = 0
			f.ForgetTemp(src)
			changed = true
		}
	}
	if changed {
		analysis.FillUses(f)
	}
	return changed
}
