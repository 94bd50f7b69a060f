// SPDX-License-Identifier: Apache-2.0
package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cmid/internal/ir"
)

func TestPipelineOrsChangedBits(t *testing.T) {
	m := ir.NewModule()
	noop := NewModulePass("noop", nil, nil, func(m *ir.Module) bool { return false })
	touch := NewModulePass("touch", nil, nil, func(m *ir.Module) bool { return true })

	p := NewPipeline("p", noop, touch)
	assert.True(t, p.Run(m))

	p2 := NewPipeline("p2", noop, noop)
	assert.False(t, p2.Run(m))
}

func TestFixedPointPipelineStopsWhenDry(t *testing.T) {
	count := 0
	shrink := NewModulePass("shrink", nil, nil, func(m *ir.Module) bool {
		count++
		return count < 3
	})
	p := NewFixedPointPipeline("fp", 0, shrink)
	p.Run(ir.NewModule())
	assert.Equal(t, 3, count, "must stop the round after the first no-change result")
}

func TestFunctionPassIteratesAllFunctions(t *testing.T) {
	m := ir.NewModule()
	m.NewFunction("a", false, ir.ClassW)
	m.NewFunction("b", false, ir.ClassW)

	var seen []string
	fp := NewFunctionPass("collect", nil, nil, func(f *ir.Function) bool {
		seen = append(seen, f.Name)
		return false
	})
	fp.Run(m)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestPipelineNestsAsASinglePass(t *testing.T) {
	inner := NewPipeline("inner", NewModulePass("x", nil, nil, func(m *ir.Module) bool { return true }))
	outer := NewPipeline("outer", inner)
	assert.True(t, outer.Run(ir.NewModule()))
	assert.Implements(t, (*Pass)(nil), outer)
}
