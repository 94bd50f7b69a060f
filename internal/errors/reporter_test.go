// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterCollectsAndTaints(t *testing.T) {
	r := NewReporter("f.ssa", "line one\nline two\n")
	assert.False(t, r.HasErrors())

	r.Report(2, "something went wrong")
	assert.True(t, r.HasErrors())
	assert.Len(t, r.Diagnostics(), 1)
}

func TestReporterWireFormat(t *testing.T) {
	r := NewReporter("f.ssa", "")
	r.Report(7, "undefined symbol")
	r.Errorf(ErrorUnknownOpcode, 9, 3, "unknown opcode %q", "frob")

	var sb strings.Builder
	r.WriteWire(&sb)
	assert.Equal(t, "7: undefined symbol\n9: unknown opcode \"frob\"\n", sb.String())
}

func TestReporterWarningsDoNotTaint(t *testing.T) {
	r := NewReporter("f.ssa", "")
	r.Warnf("E0800", 1, 1, "suspicious but legal")
	assert.False(t, r.HasErrors())
	assert.Len(t, r.Diagnostics(), 1)
}

func TestFormatIncludesCodeAndSnippet(t *testing.T) {
	r := NewReporter("f.ssa", "%x =w add %ghost, 1\n")
	r.Errorf(ErrorUndefinedTemp, 1, 11, "use of undefined temporary %%ghost")

	out := r.Format(r.Diagnostics()[0])
	assert.Contains(t, out, ErrorUndefinedTemp)
	assert.Contains(t, out, "f.ssa:1:11")
	assert.Contains(t, out, "%x =w add %ghost, 1")
}

func TestInternalErrorNamesPassAndCode(t *testing.T) {
	err := Internalf("regalloc", "temporary %%t9 left without register")
	assert.Contains(t, err.Error(), "regalloc")
	assert.Contains(t, err.Error(), ErrorInternal)
}
