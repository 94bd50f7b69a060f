// SPDX-License-Identifier: Apache-2.0

// Package pass implements the optimizer's pass abstraction and pipeline
// composer: a `Pass` runs over a module and reports whether it
// changed anything; three granularity refinements narrow the unit a
// concrete pass overrides; a Pipeline runs an ordered sequence of passes
// and returns the disjunction of their `changed` bits, and may itself
// nest as one stage of an outer Pipeline.
//
// Prerequisite/invalidation bookkeeping is data rather than prose:
// `Requires()`/`Invalidates()` on Pass declare which analyses a pass
// assumes are current and which its mutations make stale, and a Pipeline
// reports the union over its stages. Nothing checks these lists when a
// pass runs: Pipeline.Run does not consult them.
package pass

import "cmid/internal/ir"

// Analysis names an invalidatable derived-data set a pass may depend on or
// invalidate. These mirror the fields package analysis computes.
type Analysis string

const (
	CFG        Analysis = "cfg"        // preds/succs/RPO
	Dominance  Analysis = "dominance"  // idom/domtree/frontier
	UseDef     Analysis = "usedef"     // use-def chains
	Liveness   Analysis = "liveness"   // live-in/live-out
	Intervals  Analysis = "intervals"  // live intervals + instr numbering
	LeafInline Analysis = "leafinline" // leaf/inlinable flags
)

// Pass is the abstract base: run over the whole module,
// report whether anything changed.
type Pass interface {
	Name() string
	Run(m *ir.Module) bool
	// Requires lists analyses this pass assumes are current.
	Requires() []Analysis
	// Invalidates lists analyses this pass's mutations make stale.
	Invalidates() []Analysis
}

// base supplies the Requires/Invalidates bookkeeping so concrete passes
// only need to embed it and set fields, rather than writing three methods
// per pass.
type base struct {
	requires    []Analysis
	invalidates []Analysis
}

func (b base) Requires() []Analysis    { return b.requires }
func (b base) Invalidates() []Analysis { return b.invalidates }

// ModulePass is a Pass whose RunModule method already receives the whole
// module — the least-refined granularity, for passes like inlining that
// need cross-function visibility.
type ModulePass struct {
	base
	PassName string
	RunModule func(m *ir.Module) bool
}

func NewModulePass(name string, requires, invalidates []Analysis, run func(m *ir.Module) bool) *ModulePass {
	return &ModulePass{base: base{requires, invalidates}, PassName: name, RunModule: run}
}

func (p *ModulePass) Name() string          { return p.PassName }
func (p *ModulePass) Run(m *ir.Module) bool { return p.RunModule(m) }

// FunctionPass iterates module.Funcs, calling RunFunction once per
// function, and ORs the per-function changed bits.
type FunctionPass struct {
	base
	PassName    string
	RunFunction func(f *ir.Function) bool
}

func NewFunctionPass(name string, requires, invalidates []Analysis, run func(f *ir.Function) bool) *FunctionPass {
	return &FunctionPass{base: base{requires, invalidates}, PassName: name, RunFunction: run}
}

func (p *FunctionPass) Name() string { return p.PassName }
func (p *FunctionPass) Run(m *ir.Module) bool {
	changed := false
	for _, f := range m.Funcs {
		if p.RunFunction(f) {
			changed = true
		}
	}
	return changed
}

// BasicBlockPass iterates a function's block list for every function in
// the module, calling RunBlock once per block.
type BasicBlockPass struct {
	base
	PassName string
	RunBlock func(f *ir.Function, b *ir.Block) bool
}

func NewBasicBlockPass(name string, requires, invalidates []Analysis, run func(f *ir.Function, b *ir.Block) bool) *BasicBlockPass {
	return &BasicBlockPass{base: base{requires, invalidates}, PassName: name, RunBlock: run}
}

func (p *BasicBlockPass) Name() string { return p.PassName }
func (p *BasicBlockPass) Run(m *ir.Module) bool {
	changed := false
	for _, f := range m.Funcs {
		for _, b := range f.Blocks() {
			if p.RunBlock(f, b) {
				changed = true
			}
		}
	}
	return changed
}
