// SPDX-License-Identifier: Apache-2.0
package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"cmid/internal/analysis"
	"cmid/internal/asm"
	cmiderrors "cmid/internal/errors"
	"cmid/internal/ir"
)

// AnalyzeBuffer runs the full front half of the compiler over one editor
// buffer — parse, lower, verify — and converts everything it surfaces
// into LSP diagnostics. A parse error stops the analysis (the parse tree
// is unusable); assembler and well-formedness findings accumulate.
func AnalyzeBuffer(path, source string) []protocol.Diagnostic {
	prog, err := asm.ParseString(path, source)
	if err != nil {
		return convertParseError(err)
	}

	rep := cmiderrors.NewReporter(path, source)
	module := asm.Lower(prog, rep)
	diagnostics := convertReported(rep.Diagnostics())

	for _, f := range module.Funcs {
		analysis.FillPredsSuccs(f) // phi arity checks need predecessor counts
		for _, verr := range ir.Verify(f) {
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    zeroRange(),
				Severity: ptrSeverity(protocol.DiagnosticSeverityError),
				Source:   ptrString("cmid-verify"),
				Message:  verr.Error(),
			})
		}
	}
	return diagnostics
}

// convertParseError transforms a participle parse error into an LSP
// diagnostic at its reported position.
func convertParseError(err error) []protocol.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return []protocol.Diagnostic{{
			Range:    zeroRange(),
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("cmid-parser"),
			Message:  err.Error(),
		}}
	}

	pos := pe.Position()
	return []protocol.Diagnostic{{
		Range:    rangeAt(pos.Line, pos.Column, 5),
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("cmid-parser"),
		Message:  pe.Message(),
	}}
}

// convertReported transforms the assembler's collected diagnostics.
func convertReported(diags []cmiderrors.Diagnostic) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Level == cmiderrors.Warning {
			severity = protocol.DiagnosticSeverityWarning
		}
		msg := d.Message
		if d.Code != "" {
			msg = "[" + d.Code + "] " + msg
		}
		out = append(out, protocol.Diagnostic{
			Range:    rangeAt(d.Line, d.Column, 5),
			Severity: ptrSeverity(severity),
			Source:   ptrString("cmid-asm"),
			Message:  msg,
		})
	}
	return out
}

// rangeAt builds a rough span at a 1-based line/column pair.
func rangeAt(line, col, span int) protocol.Range {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	return protocol.Range{
		Start: protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)},
		End:   protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1 + span)},
	}
}

func zeroRange() protocol.Range {
	return rangeAt(1, 1, 1)
}
