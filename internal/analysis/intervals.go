// SPDX-License-Identifier: Apache-2.0
package analysis

import "cmid/internal/ir"

// Interval is a temporary's live range, as a closed pair [Start, End] of
// instruction numbers in the function's reverse-post-order numbering.
type Interval struct {
	Start, End int
}

// BlockNumbering records the instruction-number boundaries analysis
// assigns each block when numbering in RPO: Entry is the number shared by
// the block's phis (and is also the first live-in boundary), Exit is the
// number just past the block's last real instruction (the number a
// terminator argument or an outgoing phi argument is considered used at).
type BlockNumbering struct {
	Entry, Exit int
}

// FillInstrNumbers numbers every instruction in the function by walking
// blocks in reverse post order: phis share their
// block's entry number (they execute "simultaneously" at block entry);
// each instruction gets the next number in sequence; the terminator's
// implicit position is the block's exit number, one past the last
// instruction. FillRPO must have already run. Returns the per-block
// numbering alongside assigning Instruction.ID.
func FillInstrNumbers(f *ir.Function) map[*ir.Block]BlockNumbering {
	blocks := f.RPO
	if blocks == nil {
		blocks = f.Blocks()
	}
	nums := make(map[*ir.Block]BlockNumbering, len(blocks))
	n := 0
	for _, b := range blocks {
		entry := n
		n++ // slot shared by all phis in this block
		for _, in := range b.Instrs {
			in.ID = n
			n++
		}
		nums[b] = BlockNumbering{Entry: entry, Exit: n}
	}
	return nums
}

// LiveIntervals computes, for every temporary the function tracks,
// [start, end] = [first def, last use], extended to block boundaries
// whenever the temporary is in that block's LiveIn (start is pulled down
// to the block's entry number, via min) or LiveOut (end is pushed up to
// the block's exit number, via max) — the two directions deliberately use
// min and max respectively, not one symmetric rule.
// FillUses, FillLiveness, and FillInstrNumbers must have already run.
func LiveIntervals(f *ir.Function, nums map[*ir.Block]BlockNumbering) map[*ir.Temp]*Interval {
	out := make(map[*ir.Temp]*Interval)
	for _, t := range f.Temps() {
		if len(t.Defs) == 0 {
			continue
		}
		start := defNumber(t.Defs[0], nums)
		end := start
		for _, d := range t.Defs[1:] {
			if n := defNumber(d, nums); n < start {
				start = n
			}
		}
		for _, u := range t.Uses {
			if n := useNumber(u, nums); n > end {
				end = n
			}
		}
		out[t] = &Interval{Start: start, End: end}
	}

	blocks := f.RPO
	if blocks == nil {
		blocks = f.Blocks()
	}
	for _, b := range blocks {
		bn := nums[b]
		for t := range b.LiveIn {
			iv := out[t]
			if iv == nil {
				iv = &Interval{Start: bn.Entry, End: bn.Entry}
				out[t] = iv
			}
			if bn.Entry < iv.Start {
				iv.Start = bn.Entry
			}
		}
		for t := range b.LiveOut {
			iv := out[t]
			if iv == nil {
				iv = &Interval{Start: bn.Exit, End: bn.Exit}
				out[t] = iv
			}
			if bn.Exit > iv.End {
				iv.End = bn.Exit
			}
		}
	}
	return out
}

func defNumber(d ir.Def, nums map[*ir.Block]BlockNumbering) int {
	if d.IsPhi() {
		return nums[d.Block].Entry
	}
	return d.Instr.ID
}

func useNumber(u ir.Use, nums map[*ir.Block]BlockNumbering) int {
	if u.IsPhiUse() {
		// A phi argument is consumed on the incoming edge — approximated
		// as live through the end of the incoming block.
		return nums[u.Block].Exit
	}
	if u.IsJmpUse() {
		return nums[u.Block].Exit
	}
	return u.Instr.ID
}
