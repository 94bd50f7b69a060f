// SPDX-License-Identifier: Apache-2.0
package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmid/internal/asm"
	"cmid/internal/errors"
	"cmid/internal/ir"
)

func assembleModule(t *testing.T, src string) *ir.Module {
	t.Helper()
	prog, err := asm.ParseString("test.ssa", src)
	require.NoError(t, err)
	rep := errors.NewReporter("test.ssa", src)
	m := asm.Lower(prog, rep)
	require.False(t, rep.HasErrors())
	return m
}

func TestRegistryCoversEveryTierPass(t *testing.T) {
	reg := Registry()
	for _, name := range []string{
		"ssa-construct", "local-propagate", "copy-propagate", "gvn", "dce",
		"cfg-simplify", "licm", "gcm", "inline", "tailrec", "ssa-destruct",
	} {
		assert.Contains(t, reg, name)
	}
	assert.Len(t, Names(), len(reg))
}

func TestEmptyFunctionSurvivesFullPipeline(t *testing.T) {
	m := assembleModule(t, `
function w $f() {
@entry
	ret 0
}
`)
	Tier(2).Run(m)

	require.Len(t, m.Funcs, 1)
	f := m.Funcs[0]
	assert.Empty(t, ir.Verify(f), "the pipeline must keep an empty function well-formed")
	require.NotNil(t, f.Start)
	assert.Equal(t, ir.TermRet, f.Blocks()[len(f.Blocks())-1].Term.Kind)
}

// TestPipelinePromotesAndDestructsIfElse drives the canonical
// `int x; if (c) x=1; else x=2; return x;` shape end to end: after the
// -O1 pipeline no alloc, load, store, or phi may remain.
func TestPipelinePromotesAndDestructsIfElse(t *testing.T) {
	m := assembleModule(t, `
function w $f(w %c) {
@entry
	%p =l alloc4 4
	jnz %c, @then, @else
@then
	storew %p, 1
	jmp @join
@else
	storew %p, 2
	jmp @join
@join
	%v =w loadw %p
	ret %v
}
`)
	Tier(1).Run(m)

	f := m.Funcs[0]
	assert.Empty(t, ir.Verify(f))
	for _, b := range f.Blocks() {
		assert.Empty(t, b.Phis, "SSA destruction must have removed every phi")
		for _, in := range b.Instrs {
			assert.False(t, in.Op.IsAlloc(), "the promoted alloc must be gone or a nop")
			assert.False(t, in.Op.IsLoad())
			assert.False(t, in.Op.IsStore())
		}
	}
}

func TestTierZeroIsMinimal(t *testing.T) {
	p := Tier(0)
	require.Len(t, p.Passes, 2)
	assert.Equal(t, "ssa-construct", p.Passes[0].Name())
	assert.Equal(t, "ssa-destruct", p.Passes[1].Name())
}

func TestTierTwoRunsProcedureLevelPasses(t *testing.T) {
	m := assembleModule(t, `
function w $add1(w %a) {
@entry
	%r =w add %a, 1
	ret %r
}
export
function w $main() {
@entry
	arg 41
	%r =w call $add1
	ret %r
}
`)
	Tier(2).Run(m)

	main := m.Funcs[1]
	for _, b := range main.Blocks() {
		for _, in := range b.Instrs {
			assert.NotEqual(t, ir.OCall, in.Op, "the call to an inlinable callee must be expanded")
		}
	}
	assert.Empty(t, ir.Verify(main))
}
