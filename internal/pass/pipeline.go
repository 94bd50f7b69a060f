// SPDX-License-Identifier: Apache-2.0
package pass

import "cmid/internal/ir"

// Pipeline composes an ordered sequence of passes and runs them in order,
// returning the disjunction of their `changed` bits.
// Pipelines nest: a Pipeline is itself a Pass, so one stage of an outer
// Pipeline may be an entire inner Pipeline (e.g. "run scalar opts to a
// fixpoint" nested inside the top-level -O1 pipeline).
type Pipeline struct {
	PassName string
	Passes   []Pass
	// FixedPoint, if set, reruns the whole sequence until no pass in it
	// reports a change, up to a safety bound, instead of running it once.
	FixedPoint bool
	MaxRounds  int
}

// NewPipeline builds a single-pass-through pipeline.
func NewPipeline(name string, passes ...Pass) *Pipeline {
	return &Pipeline{PassName: name, Passes: passes}
}

// NewFixedPointPipeline builds a pipeline that reruns passes until a
// round produces no change, bounded by maxRounds (0 means a default of
// 32 — optimization pipelines always converge well before that on
// realistic functions; the bound exists only to turn a pipeline bug into
// a finite loop instead of an infinite one).
func NewFixedPointPipeline(name string, maxRounds int, passes ...Pass) *Pipeline {
	return &Pipeline{PassName: name, Passes: passes, FixedPoint: true, MaxRounds: maxRounds}
}

func (p *Pipeline) Name() string { return p.PassName }

func (p *Pipeline) Requires() []Analysis {
	seen := make(map[Analysis]bool)
	var out []Analysis
	for _, sub := range p.Passes {
		for _, a := range sub.Requires() {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

func (p *Pipeline) Invalidates() []Analysis {
	seen := make(map[Analysis]bool)
	var out []Analysis
	for _, sub := range p.Passes {
		for _, a := range sub.Invalidates() {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

func (p *Pipeline) Run(m *ir.Module) bool {
	if !p.FixedPoint {
		return p.runOnce(m)
	}
	max := p.MaxRounds
	if max <= 0 {
		max = 32
	}
	changedOverall := false
	for i := 0; i < max; i++ {
		if !p.runOnce(m) {
			break
		}
		changedOverall = true
	}
	return changedOverall
}

func (p *Pipeline) runOnce(m *ir.Module) bool {
	changed := false
	for _, sub := range p.Passes {
		if sub.Run(m) {
			changed = true
		}
	}
	return changed
}
