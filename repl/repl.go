// Package repl SPDX-License-Identifier: Apache-2.0
//
// An interactive pass explorer: paste a textual IR module (or :load a
// file), then run optimization passes one at a time and watch the IR
// change between runs.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"cmid/internal/asm"
	"cmid/internal/errors"
	"cmid/internal/ir"
	"cmid/internal/pass"
)

const PROMPT = ">> "

func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	registry := pass.Registry()

	var module *ir.Module
	var buffer []string
	depth := 0

	fmt.Fprintln(out, "cmid pass explorer — paste IR, or :help")
	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()

		if strings.HasPrefix(line, ":") {
			if module = runCommand(out, line, module, registry); module == nil && line == ":quit" {
				return
			}
			continue
		}

		buffer = append(buffer, line)
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth > 0 || !containsBrace(buffer) {
			continue
		}

		// braces balanced: assemble the buffered module
		source := strings.Join(buffer, "\n") + "\n"
		buffer = nil
		depth = 0
		if m := assemble(out, "repl.ssa", source); m != nil {
			module = m
			fmt.Fprintln(out, ir.Print(module))
		}
	}
}

func containsBrace(lines []string) bool {
	for _, l := range lines {
		if strings.Contains(l, "{") {
			return true
		}
	}
	return false
}

func assemble(out io.Writer, name, source string) *ir.Module {
	prog, err := asm.ParseString(name, source)
	if err != nil {
		asm.ReportParseError(source, err)
		return nil
	}
	rep := errors.NewReporter(name, source)
	m := asm.Lower(prog, rep)
	if rep.HasErrors() {
		rep.WritePretty(out)
		return nil
	}
	return m
}

// runCommand handles one :command line and returns the (possibly
// replaced) module.
func runCommand(out io.Writer, line string, module *ir.Module, registry map[string]pass.Pass) *ir.Module {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit":
		return nil
	case ":help":
		fmt.Fprintln(out, "paste a textual IR module to load it, then:")
		fmt.Fprintln(out, "  :load <file>   assemble a file")
		fmt.Fprintln(out, "  :run <pass>    run one pass and show the delta")
		fmt.Fprintln(out, "  :passes        list pass names")
		fmt.Fprintln(out, "  :print         print the current module")
		fmt.Fprintln(out, "  :quit")
	case ":passes":
		for _, n := range pass.Names() {
			fmt.Fprintln(out, "  "+n)
		}
	case ":load":
		if len(fields) != 2 {
			color.Red("usage: :load <file>")
			break
		}
		source, err := os.ReadFile(fields[1])
		if err != nil {
			color.Red("%s", err)
			break
		}
		if m := assemble(out, fields[1], string(source)); m != nil {
			fmt.Fprintln(out, ir.Print(m))
			return m
		}
	case ":print":
		if module == nil {
			color.Red("no module loaded")
			break
		}
		fmt.Fprintln(out, ir.Print(module))
	case ":run":
		if module == nil {
			color.Red("no module loaded")
			break
		}
		if len(fields) != 2 {
			color.Red("usage: :run <pass>")
			break
		}
		p, ok := registry[fields[1]]
		if !ok {
			color.Red("unknown pass %q (try :passes)", fields[1])
			break
		}
		before := ir.Print(module)
		changed := p.Run(module)
		after := ir.Print(module)
		if !changed {
			fmt.Fprintln(out, "(no change)")
			break
		}
		printDelta(out, before, after)
	default:
		color.Red("unknown command %q (try :help)", fields[0])
	}
	return module
}

// printDelta prints the new IR with added lines in green, then lists the
// removed lines in red. A line-multiset comparison keeps it simple; the
// point is spotting what a pass did, not a minimal diff.
func printDelta(out io.Writer, before, after string) {
	oldCount := make(map[string]int)
	for _, l := range strings.Split(before, "\n") {
		oldCount[l]++
	}
	newCount := make(map[string]int)

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, l := range strings.Split(after, "\n") {
		newCount[l]++
		if newCount[l] > oldCount[l] {
			fmt.Fprintln(out, green("+ "+l))
		} else {
			fmt.Fprintln(out, "  "+l)
		}
	}
	// removed lines: present more often before than after
	for l, n := range oldCount {
		if n > newCount[l] && strings.TrimSpace(l) != "" {
			for i := 0; i < n-newCount[l]; i++ {
				fmt.Fprintln(out, red("- "+l))
			}
		}
	}
}
