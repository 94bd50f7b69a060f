// SPDX-License-Identifier: Apache-2.0
package ssagen

import "cmid/internal/ir"

// stacks holds the per-promotion rename stack threaded explicitly through
// the dominator-tree walk — never file-scope state, so compilation stays
// reentrant.
type stacks map[*Promotion][]*ir.Temp

func (s stacks) push(p *Promotion, t *ir.Temp) { s[p] = append(s[p], t) }
func (s stacks) pop(p *Promotion)              { s[p] = s[p][:len(s[p])-1] }
func (s stacks) top(p *Promotion) *ir.Temp {
	st := s[p]
	if len(st) == 0 {
		return nil
	}
	return st[len(st)-1]
}

// Rename performs the depth-first preorder dominator-tree walk: at each
// definition it pushes a fresh SSA name, rewrites uses to the
// current top-of-stack, patches successors' phi arguments on the way out
// of a block, and pops on leaving. defOwner maps a Defs instruction back to
// its Promotion (built once, up front, since Rename visits instructions in
// block order rather than per-promotion order). A use with no prior
// def on its stack (an uninitialized read) is left pointing at the Var
// placeholder rather than crashing — the caller must treat that as
// undefined behavior in the source program.
func Rename(f *ir.Function, promos []*Promotion, owners phiOf) {
	if f.Start == nil || len(promos) == 0 {
		return
	}
	defOwner := make(map[*ir.Instruction]*Promotion)
	useOwner := make(map[*ir.Instruction]*Promotion)
	for _, p := range promos {
		for _, d := range p.Defs {
			defOwner[d] = p
		}
		for _, u := range p.Uses {
			useOwner[u] = p
		}
	}

	st := make(stacks)

	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		var pushed []*Promotion

		for _, phi := range b.Phis {
			if p, ok := owners[phi]; ok {
				st.push(p, phi.Dest)
				pushed = append(pushed, p)
			}
		}

		for _, in := range b.Instrs {
			if p, ok := useOwner[in]; ok {
				if cur := st.top(p); cur != nil {
					in.Args[0] = cur
				}
				continue
			}
			if p, ok := defOwner[in]; ok {
				st.push(p, in.Dest)
				pushed = append(pushed, p)
			}
		}

		for _, s := range b.Succs {
			for _, phi := range s.Phis {
				p, ok := owners[phi]
				if !ok {
					continue
				}
				for i := range phi.Args {
					if phi.Args[i].Block != b {
						continue
					}
					if cur := st.top(p); cur != nil {
						phi.Args[i].Val = cur
					}
				}
			}
		}

		for _, c := range b.DomChildren {
			walk(c)
		}

		for _, p := range pushed {
			st.pop(p)
		}
	}
	walk(f.Start)
}
