// SPDX-License-Identifier: Apache-2.0

// Package errors collects and formats the diagnostics the cmid toolchain
// raises: assembler semantic errors (reported with a source position and
// best-effort recovery, so several can surface in one run) and internal
// errors (compiler bugs, which abort the pipeline).
package errors

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a diagnostic.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
)

// Diagnostic is one structured message tied to a source position.
type Diagnostic struct {
	Level   Level
	Code    string // error code like E0001
	Message string
	Line    int
	Column  int
}

// Reporter accumulates diagnostics for one compilation. Raising an error
// taints the compilation but never stops it: lowering continues
// best-effort so later errors can also be surfaced, and the driver checks
// HasErrors before emitting anything.
type Reporter struct {
	filename string
	lines    []string
	diags    []Diagnostic
}

// NewReporter creates a reporter for a file. source is used for context
// snippets in formatted output; pass "" when no source is at hand.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// Report records a plain error with a line number. It satisfies
// ir.DiagSink, so a Reporter can be handed directly to the IR builder.
func (r *Reporter) Report(line int, msg string) {
	r.diags = append(r.diags, Diagnostic{Level: Error, Message: msg, Line: line})
}

// Errorf records a coded error at a position.
func (r *Reporter) Errorf(code string, line, col int, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Level: Error, Code: code, Line: line, Column: col,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnf records a coded warning at a position.
func (r *Reporter) Warnf(code string, line, col int, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Level: Warning, Code: code, Line: line, Column: col,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any error-level diagnostic was raised. The
// driver must suppress code emission when this is true.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// Diagnostics returns everything reported so far, in report order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

// WriteWire writes every diagnostic in the plain `<lineno>: <msg>` wire
// format, one per line.
func (r *Reporter) WriteWire(w io.Writer) {
	for _, d := range r.diags {
		fmt.Fprintf(w, "%d: %s\n", d.Line, d.Message)
	}
}

// Format renders one diagnostic with colored, caret-style output for
// terminals: a header line, the source line, and a caret marker.
func (r *Reporter) Format(d Diagnostic) string {
	var result strings.Builder

	levelColor := r.levelColor(d.Level)
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(d.Level)), d.Message))
	}
	result.WriteString(fmt.Sprintf("  %s %s:%d:%d\n", dim("-->"), r.filename, d.Line, d.Column))

	if d.Line >= 1 && d.Line <= len(r.lines) && r.lines[d.Line-1] != "" {
		result.WriteString(fmt.Sprintf("  %s %s\n", dim("|"), r.lines[d.Line-1]))
		if d.Column >= 1 {
			caret := strings.Repeat(" ", d.Column-1) + "^"
			result.WriteString(fmt.Sprintf("  %s %s\n", dim("|"), levelColor(caret)))
		}
	}
	return result.String()
}

// WritePretty writes every diagnostic with Format.
func (r *Reporter) WritePretty(w io.Writer) {
	for _, d := range r.diags {
		fmt.Fprint(w, r.Format(d))
	}
}

func (r *Reporter) levelColor(level Level) func(...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
