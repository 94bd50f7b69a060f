// SPDX-License-Identifier: Apache-2.0
package opt

import (
	"fmt"
	"strconv"

	"cmid/internal/ir"
)

// GVN is global value numbering: traversing blocks
// in dominator-tree reverse post order (f.RPO, computed from the CFG,
// which a dominance-respecting traversal of a reducible CFG coincides
// with), it computes a structural hash for every phi and instruction
// keyed on opcode plus recursively-hashed operands (constants by literal
// bits, block labels in phis by block id, and temp operands by their
// *canonical* number so far). The first temp with a given hash is
// canonical; later temps with the same hash are redirected to it by a
// final rewrite over every use in the function. A phi whose arguments
// differ only because one hasn't been numbered yet (a loop-carried value
// not yet visited) takes a fresh number of its own rather than being
// forced to match — the cycle breaks at an arbitrary point, and that fresh
// number is simply what falls out of treating an absent canonOf entry as
// the temp's own identity. FillRPO must have already run.
func GVN(f *ir.Function) bool {
	canonOf := make(map[*ir.Temp]*ir.Temp)
	byHash := make(map[string]*ir.Temp)

	canonKey := func(v ir.Value) string {
		switch x := v.(type) {
		case *ir.Temp:
			if c, ok := canonOf[x]; ok {
				return "t" + strconv.Itoa(c.ID)
			}
			return "t" + strconv.Itoa(x.ID)
		case *ir.ConstBits:
			return fmt.Sprintf("c%d:%d", x.Cls, x.Bits)
		case *ir.GlobalAddress:
			return "g" + x.Sym
		default:
			return "?"
		}
	}

	record := func(dest *ir.Temp, key string) {
		if dest == nil {
			return
		}
		if existing, ok := byHash[key]; ok {
			canonOf[dest] = existing
			return
		}
		byHash[key] = dest
	}

	for _, b := range f.RPO {
		for _, phi := range b.Phis {
			key := fmt.Sprintf("phi%d", phi.Cls)
			for _, a := range phi.Args {
				key += fmt.Sprintf("|@%d=%s", a.Block.ID, canonKey(a.Val))
			}
			record(phi.Dest, key)
		}
		for _, in := range b.Instrs {
			if in.Dest == nil || in.Op.HasSideEffect() || in.Op == ir.OCopy {
				continue
			}
			key := fmt.Sprintf("op%d.%d", in.Op, in.Cls)
			args := make([]string, in.NArgs)
			for i := 0; i < in.NArgs; i++ {
				args[i] = canonKey(in.Args[i])
			}
			if in.Op.IsCommutative() && in.NArgs == 2 && args[0] > args[1] {
				args[0], args[1] = args[1], args[0]
			}
			for _, a := range args {
				key += "|" + a
			}
			record(in.Dest, key)
		}
	}

	if len(canonOf) == 0 {
		return false
	}

	canon := func(v ir.Value) (ir.Value, bool) {
		t, ok := v.(*ir.Temp)
		if !ok {
			return v, false
		}
		c, ok := canonOf[t]
		if !ok {
			return v, false
		}
		return c, true
	}

	changed := false
	for _, b := range f.Blocks() {
		for _, phi := range b.Phis {
			for i := range phi.Args {
				if v, ok := canon(phi.Args[i].Val); ok {
					phi.Args[i].Val = v
					changed = true
				}
			}
		}
		for _, in := range b.Instrs {
			for i := 0; i < in.NArgs; i++ {
				if v, ok := canon(in.Args[i]); ok {
					in.Args[i] = v
					changed = true
				}
			}
		}
		if b.Term != nil && b.Term.Arg != nil {
			if v, ok := canon(b.Term.Arg); ok {
				b.Term.Arg = v
				changed = true
			}
		}
	}
	return changed
}
