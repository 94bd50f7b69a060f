// SPDX-License-Identifier: Apache-2.0
package analysis

import "cmid/internal/ir"

// FillLiveness computes LiveIn/LiveOut for every block with the standard
// phi-aware backward dataflow: a phi's destination is
// defined in the phi's block; a phi's incoming value is treated as used in
// the phi's block itself (the textbook approximation, rather than
// precisely on the incoming edge). Iterates to a fixpoint,
// walking blocks in reverse of reverse-post-order so most blocks converge
// in one or two passes. FillPredsSuccs and FillRPO must have already run.
func FillLiveness(f *ir.Function) {
	blocks := f.RPO
	if blocks == nil {
		blocks = f.Blocks()
	}

	use := make(map[*ir.Block]map[*ir.Temp]bool, len(blocks))
	def := make(map[*ir.Block]map[*ir.Temp]bool, len(blocks))
	for _, b := range blocks {
		u, d := blockUseDef(b)
		use[b] = u
		def[b] = d
		b.LiveIn = make(map[*ir.Temp]bool)
		b.LiveOut = make(map[*ir.Temp]bool)
	}

	changed := true
	for changed {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			out := make(map[*ir.Temp]bool)
			for _, s := range b.Succs {
				for t := range s.LiveIn {
					out[t] = true
				}
			}
			in := make(map[*ir.Temp]bool)
			for t := range use[b] {
				in[t] = true
			}
			for t := range out {
				if !def[b][t] {
					in[t] = true
				}
			}
			if !setEqual(in, b.LiveIn) || !setEqual(out, b.LiveOut) {
				changed = true
			}
			b.LiveIn = in
			b.LiveOut = out
		}
	}
}

// blockUseDef computes a block's local use and def sets: use = temps read
// before any def in the block (phi uses count as used-in-block per the
// approximation above); def = temps defined anywhere in the block
// (including phis).
func blockUseDef(b *ir.Block) (use, def map[*ir.Temp]bool) {
	use = make(map[*ir.Temp]bool)
	def = make(map[*ir.Temp]bool)
	for _, phi := range b.Phis {
		for _, a := range phi.Args {
			if t, ok := a.Val.(*ir.Temp); ok && !def[t] {
				use[t] = true
			}
		}
		if phi.Dest != nil {
			def[phi.Dest] = true
		}
	}
	for _, in := range b.Instrs {
		for i := 0; i < in.NArgs; i++ {
			if t, ok := in.Args[i].(*ir.Temp); ok && !def[t] {
				use[t] = true
			}
		}
		if in.Dest != nil {
			def[in.Dest] = true
		}
	}
	if b.Term != nil && b.Term.Arg != nil {
		if t, ok := b.Term.Arg.(*ir.Temp); ok && !def[t] {
			use[t] = true
		}
	}
	return use, def
}

func setEqual(a, b map[*ir.Temp]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for t := range a {
		if !b[t] {
			return false
		}
	}
	return true
}
