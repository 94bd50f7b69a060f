// SPDX-License-Identifier: Apache-2.0
package ssagen

import (
	"cmid/internal/analysis"
	"cmid/internal/ir"
)

// Construct runs the full three-stage SSA-construction pipeline over f:
// Mem2Reg, then dominance-frontier-based phi
// insertion, then dominator-tree renaming. Callers must have already run
// analysis.FillPredsSuccs/FillRPO/FillDominators/FillDominanceFrontier (or
// call analysis.RunCFGOnly) since phi insertion needs the dominance
// frontier and renaming needs the dominator tree. It re-runs FillUses at
// the end, since construction invalidates the prior use-def chains.
func Construct(f *ir.Function) {
	promos := Mem2Reg(f)
	if len(promos) == 0 {
		return
	}
	owners := InsertPhis(f, promos)
	Rename(f, promos, owners)
	analysis.FillUses(f)
}
