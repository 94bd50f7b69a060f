// SPDX-License-Identifier: Apache-2.0

// Package regalloc assigns physical registers to temporaries with a
// linear scan over live intervals. The target exposes disjoint RISC-V
// register banks: integer callee-saved (s), caller-saved (t), and
// argument (a) registers, plus their floating equivalents; integer
// registers are numbered 0-31 and float registers 32-63.
//
// Allocation proceeds in four stages: classify temporaries as global
// (live across blocks) or local, pre-allocate a-bank registers to
// parameters and trivial call arguments, run the linear-scan sweep over
// the s/fs banks for globals, and hand out t/ft registers block by
// block for locals. A temporary that cannot get a register is spilled;
// a temporary that ends the pipeline with no assignment at all is an
// internal error.
package regalloc

import (
	"fmt"

	"cmid/internal/analysis"
	"cmid/internal/errors"
	"cmid/internal/ir"
)

const (
	// Spill marks a temporary that lives in memory; the backend gives it
	// a stack slot.
	Spill = -1
	// NoReg marks a temporary the allocator never reached. Seeing it
	// after allocation is a compiler bug.
	NoReg = -2

	floatBase = 32
)

// Register banks, by RISC-V number.
var (
	sRegs  = []int{9, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27}
	tRegs  = []int{5, 6, 7, 28, 29, 30, 31}
	aRegs  = []int{10, 11, 12, 13, 14, 15, 16, 17}
	fsRegs = floatBank(8, 9, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27)
	ftRegs = floatBank(0, 1, 2, 3, 4, 5, 6, 7, 28, 29, 30, 31)
	faRegs = floatBank(10, 11, 12, 13, 14, 15, 16, 17)
)

func floatBank(ns ...int) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = floatBase + n
	}
	return out
}

// RegName renders a register number in assembly spelling, with the spill
// sentinel shown as "[mem]".
func RegName(r int) string {
	switch {
	case r == Spill:
		return "[mem]"
	case r >= floatBase:
		return fmt.Sprintf("f%d", r-floatBase)
	case r >= 0:
		return fmt.Sprintf("x%d", r)
	default:
		return "[none]"
	}
}

type allocator struct {
	f       *ir.Function
	res     *analysis.Result
	regMap  map[*ir.Temp]int
	globals map[*ir.Temp]bool
}

// Allocate maps every value-carrying temporary of f to a register number
// or the spill sentinel. It runs the full analysis stack itself (the
// intervals must reflect the exact instruction stream being allocated).
func Allocate(f *ir.Function) (map[*ir.Temp]int, error) {
	res := analysis.Run(f)
	al := &allocator{
		f:       f,
		res:     res,
		regMap:  make(map[*ir.Temp]int),
		globals: make(map[*ir.Temp]bool),
	}
	al.findGlobalTemps()
	al.preAllocateArgs()
	al.allocateGlobals()
	al.allocateLocals()
	return al.regMap, al.check()
}

// findGlobalTemps classifies a temporary as global when it occurs (as a
// def or a use) in more than one block.
func (al *allocator) findGlobalTemps() {
	for _, t := range al.f.Temps() {
		blocks := make(map[*ir.Block]bool)
		for _, d := range t.Defs {
			blocks[d.Block] = true
		}
		for _, u := range t.Uses {
			blocks[u.Block] = true
		}
		if len(blocks) > 1 {
			al.globals[t] = true
		}
	}
}

// preAllocateArgs hands a-bank registers to the first eight parameters
// and, per call, to the first eight argument values. Globals skip (they
// get s registers from the sweep), as do argument temps with more than
// one use (the value outlives the call protocol).
func (al *allocator) preAllocateArgs() {
	if al.f.Start == nil {
		return
	}
	idx := 0
	for _, in := range al.f.Start.Instrs {
		if in.Op != ir.OPar || in.Dest == nil {
			continue
		}
		if idx >= len(aRegs) {
			break
		}
		if al.globals[in.Dest] {
			continue
		}
		al.regMap[in.Dest] = al.argReg(in.Dest.Cls, idx)
		idx++
	}

	for _, b := range al.f.Blocks() {
		idx = 0
		for _, in := range b.Instrs {
			if in.Op != ir.OArg {
				idx = 0
				continue
			}
			if idx >= len(aRegs) {
				continue
			}
			t, ok := in.Arg(0).(*ir.Temp)
			if !ok {
				idx++
				continue
			}
			if al.globals[t] || len(t.Uses) > 1 {
				idx++
				continue
			}
			if _, taken := al.regMap[t]; !taken {
				al.regMap[t] = al.argReg(t.Cls, idx)
			}
			idx++
		}
	}
}

func (al *allocator) argReg(cls ir.Class, idx int) int {
	if cls.IsFloat() {
		return faRegs[idx]
	}
	return aRegs[idx]
}

type tempInterval struct {
	temp     *ir.Temp
	interval *analysis.Interval
}

// allocateGlobals runs the classic linear-scan sweep over the global
// temporaries, integers against the s bank and floats against the fs
// bank.
func (al *allocator) allocateGlobals() {
	var ints, floats []tempInterval
	for t := range al.globals {
		if _, done := al.regMap[t]; done {
			continue
		}
		iv := al.res.Intervals[t]
		if iv == nil {
			continue
		}
		if t.Cls.IsFloat() {
			floats = append(floats, tempInterval{t, iv})
		} else {
			ints = append(ints, tempInterval{t, iv})
		}
	}
	al.linearScan(ints, append([]int(nil), sRegs...))
	al.linearScan(floats, append([]int(nil), fsRegs...))
}

type activeEntry struct {
	temp *ir.Temp
	reg  int
	end  int
}

// linearScan sweeps intervals sorted by start, keeping the active set
// ordered by end point: expired actives release their register; when the
// free set runs dry either the candidate or the longest-living active
// spills, whichever ends later.
func (al *allocator) linearScan(intervals []tempInterval, free []int) {
	sortByStart(intervals)
	var active []activeEntry

	for _, ti := range intervals {
		for len(active) > 0 && active[0].end <= ti.interval.Start {
			free = append(free, active[0].reg)
			active = active[1:]
		}

		if len(free) == 0 {
			back := active[len(active)-1]
			if back.end >= ti.interval.End {
				// the active outlives the candidate: spill it instead
				active = active[:len(active)-1]
				al.regMap[back.temp] = Spill
				al.regMap[ti.temp] = back.reg
				active = insertActive(active, activeEntry{ti.temp, back.reg, ti.interval.End})
			} else {
				al.regMap[ti.temp] = Spill
			}
			continue
		}

		reg := free[0]
		free = free[1:]
		al.regMap[ti.temp] = reg
		active = insertActive(active, activeEntry{ti.temp, reg, ti.interval.End})
	}
}

func sortByStart(intervals []tempInterval) {
	for i := 1; i < len(intervals); i++ {
		for j := i; j > 0 && intervals[j-1].interval.Start > intervals[j].interval.Start; j-- {
			intervals[j-1], intervals[j] = intervals[j], intervals[j-1]
		}
	}
}

func insertActive(active []activeEntry, e activeEntry) []activeEntry {
	at := len(active)
	for i, a := range active {
		if a.end > e.end {
			at = i
			break
		}
	}
	active = append(active, activeEntry{})
	copy(active[at+1:], active[at:])
	active[at] = e
	return active
}

// allocateLocals hands out t/ft registers per block with a backward
// walk: a use with no assignment opens the live range and grabs a
// register, the def closes it and returns the register to the pool.
func (al *allocator) allocateLocals() {
	for _, b := range al.f.Blocks() {
		intPool := append([]int(nil), tRegs...)
		floatPool := append([]int(nil), ftRegs...)
		pool := func(cls ir.Class) *[]int {
			if cls.IsFloat() {
				return &floatPool
			}
			return &intPool
		}
		owned := make(map[int]bool)

		grab := func(t *ir.Temp) {
			if _, done := al.regMap[t]; done || al.globals[t] {
				return
			}
			p := pool(t.Cls)
			if len(*p) == 0 {
				al.regMap[t] = Spill
				return
			}
			reg := (*p)[0]
			*p = (*p)[1:]
			owned[reg] = true
			al.regMap[t] = reg
		}
		release := func(t *ir.Temp) {
			reg, ok := al.regMap[t]
			if !ok || reg < 0 || !owned[reg] {
				return
			}
			p := pool(t.Cls)
			*p = append(*p, reg)
			delete(owned, reg)
		}

		if b.Term != nil && b.Term.Arg != nil {
			if t, ok := b.Term.Arg.(*ir.Temp); ok {
				grab(t)
			}
		}
		for i := len(b.Instrs) - 1; i >= 0; i-- {
			in := b.Instrs[i]
			if in.Dest != nil {
				if _, done := al.regMap[in.Dest]; !done && !al.globals[in.Dest] {
					// defined but never read: the range is a single point
					grab(in.Dest)
				}
				release(in.Dest)
			}
			for j := 0; j < in.NArgs; j++ {
				if t, ok := in.Args[j].(*ir.Temp); ok {
					grab(t)
				}
			}
		}
	}
}

// check verifies that every temporary carrying a value got either a
// register or a spill slot. Anything else is a compiler bug that must
// halt the pipeline.
func (al *allocator) check() error {
	for _, t := range al.f.Temps() {
		if len(t.Defs) == 0 && len(t.Uses) == 0 {
			continue
		}
		if t.Cls == ir.ClassX {
			continue
		}
		if r, ok := al.regMap[t]; !ok || r == NoReg {
			return errors.Internalf("regalloc", "temporary %s left without register or spill slot", t)
		}
	}
	return nil
}
