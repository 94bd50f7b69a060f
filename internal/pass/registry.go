// SPDX-License-Identifier: Apache-2.0
package pass

import (
	"sort"

	"cmid/internal/analysis"
	"cmid/internal/ir"
	"cmid/internal/opt"
	"cmid/internal/ssadestruct"
	"cmid/internal/ssagen"
)

// Registry returns the standard optimization passes by name. The driver
// composes tiers out of these; the REPL runs them one at a time.
func Registry() map[string]Pass {
	return map[string]Pass{
		"ssa-construct":   SSAConstruct(),
		"local-propagate": LocalPropagate(),
		"copy-propagate":  GlobalCopyPropagate(),
		"gvn":             GVN(),
		"dce":             DCE(),
		"cfg-simplify":    CFGSimplify(),
		"licm":            LICM(),
		"gcm":             GCM(),
		"inline":          Inline(),
		"tailrec":         TailRec(),
		"ssa-destruct":    SSADestruct(),
	}
}

// Names returns the registry's pass names, sorted.
func Names() []string {
	reg := Registry()
	names := make([]string, 0, len(reg))
	for n := range reg {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SSAConstruct promotes memory slots to SSA temporaries: Mem2Reg, phi
// insertion over the dominance frontier, dominator-tree renaming.
func SSAConstruct() Pass {
	return NewFunctionPass("ssa-construct",
		nil,
		[]Analysis{UseDef, Liveness, Intervals},
		func(f *ir.Function) bool {
			analysis.RunCFGOnly(f)
			promos := ssagen.Mem2Reg(f)
			if len(promos) == 0 {
				return false
			}
			owners := ssagen.InsertPhis(f, promos)
			ssagen.Rename(f, promos, owners)
			analysis.FillUses(f)
			return true
		})
}

// LocalPropagate is per-block constant and copy propagation.
func LocalPropagate() Pass {
	return NewModulePass("local-propagate",
		nil,
		[]Analysis{UseDef, Liveness, Intervals},
		func(m *ir.Module) bool {
			changed := false
			for _, f := range m.Funcs {
				if opt.LocalPropagate(f, m.Interner) {
					changed = true
				}
			}
			return changed
		})
}

// GlobalCopyPropagate chases copy chains function-wide.
func GlobalCopyPropagate() Pass {
	return NewFunctionPass("copy-propagate",
		[]Analysis{UseDef},
		[]Analysis{UseDef, Liveness, Intervals},
		func(f *ir.Function) bool {
			analysis.FillUses(f)
			return opt.GlobalCopyPropagate(f)
		})
}

// GVN numbers structurally identical values and merges them.
func GVN() Pass {
	return NewFunctionPass("gvn",
		[]Analysis{CFG},
		[]Analysis{UseDef, Liveness, Intervals},
		func(f *ir.Function) bool {
			analysis.FillPredsSuccs(f)
			analysis.FillRPO(f)
			return opt.GVN(f)
		})
}

// DCE removes instructions and phis no always-alive instruction needs.
func DCE() Pass {
	return NewFunctionPass("dce",
		[]Analysis{UseDef},
		[]Analysis{UseDef, Liveness, Intervals},
		func(f *ir.Function) bool {
			analysis.FillUses(f)
			changed := opt.SimpleDCE(f)
			if changed {
				analysis.FillUses(f)
			}
			return changed
		})
}

// CFGSimplify removes empty blocks, merges straight-line pairs, and
// drops unreachable blocks.
func CFGSimplify() Pass {
	return NewFunctionPass("cfg-simplify",
		nil,
		[]Analysis{CFG, Dominance, UseDef, Liveness, Intervals},
		opt.CFGSimplify)
}

// LICM hoists loop-invariant instructions into pre-headers.
func LICM() Pass {
	return NewFunctionPass("licm",
		[]Analysis{CFG, Dominance, UseDef},
		[]Analysis{CFG, Dominance, Liveness, Intervals},
		opt.LICM)
}

// GCM reschedules movable instructions on the dominator tree.
func GCM() Pass {
	return NewFunctionPass("gcm",
		[]Analysis{CFG, Dominance, UseDef},
		[]Analysis{UseDef, Liveness, Intervals},
		opt.GCM)
}

// Inline expands calls to inlinable callees.
func Inline() Pass {
	return NewModulePass("inline",
		[]Analysis{LeafInline},
		[]Analysis{CFG, Dominance, UseDef, Liveness, Intervals, LeafInline},
		func(m *ir.Module) bool {
			opt.FillModuleFlags(m)
			return opt.Inline(m)
		})
}

// TailRec turns self tail calls into loops.
func TailRec() Pass {
	return NewFunctionPass("tailrec",
		nil,
		[]Analysis{CFG, Dominance, UseDef, Liveness, Intervals},
		opt.TailRecursionEliminate)
}

// SSADestruct lowers phis to copies and coalesces the leftovers.
func SSADestruct() Pass {
	return NewFunctionPass("ssa-destruct",
		[]Analysis{CFG},
		[]Analysis{CFG, Dominance, UseDef, Liveness, Intervals},
		func(f *ir.Function) bool {
			changed := ssadestruct.Destruct(f)
			if ssadestruct.CopyCleanup(f) {
				changed = true
			}
			return changed
		})
}

// Tier composes the optimization pipeline for one -O level. Level 0 is
// the bare minimum the backend contract needs (SSA in, phi-free out);
// level 1 adds the scalar and CFG cleanups run to a fixpoint; level 2
// adds the procedure-level and motion passes.
func Tier(level int) *Pipeline {
	scalar := NewFixedPointPipeline("scalar", 0,
		LocalPropagate(),
		GlobalCopyPropagate(),
		GVN(),
		DCE(),
		CFGSimplify(),
	)

	switch {
	case level <= 0:
		return NewPipeline("O0",
			SSAConstruct(),
			SSADestruct(),
		)
	case level == 1:
		return NewPipeline("O1",
			SSAConstruct(),
			scalar,
			SSADestruct(),
		)
	default:
		return NewPipeline("O2",
			Inline(),
			TailRec(),
			SSAConstruct(),
			scalar,
			LICM(),
			GCM(),
			DCE(),
			CFGSimplify(),
			SSADestruct(),
		)
	}
}
