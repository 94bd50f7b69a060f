// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"

	"cmid/internal/asm"
	"cmid/internal/errors"
	"cmid/internal/ir"
	"cmid/internal/pass"
	"cmid/internal/regalloc"
	"cmid/repl"
)

func main() {
	optLevel := flag.Int("O", 1, "optimization tier (0, 1, or 2)")
	showRegs := flag.Bool("S", false, "print register assignments instead of textual IR")
	interactive := flag.Bool("i", false, "start the interactive pass explorer")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: cmidc [-O level] [-S] <file.ssa>  |  cmidc -i")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *interactive {
		repl.Start(os.Stdin, os.Stdout)
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	prog, err := asm.ParseString(path, string(source))
	if err != nil {
		asm.ReportParseError(string(source), err)
		os.Exit(1)
	}

	rep := errors.NewReporter(path, string(source))
	module := asm.Lower(prog, rep)
	if rep.HasErrors() {
		// the wire format first, then the pretty rendering for humans
		rep.WriteWire(os.Stderr)
		rep.WritePretty(os.Stderr)
		os.Exit(1)
	}

	pass.Tier(*optLevel).Run(module)

	if *showRegs {
		if err := printRegisterMaps(module); err != nil {
			color.Red("%s", err)
			os.Exit(1)
		}
		return
	}

	fmt.Print(ir.Print(module))
	color.Green("processed %s at -O%d", path, *optLevel)
}

// printRegisterMaps runs the allocator over every function and prints
// one `%temp -> reg` line per temporary, functions in module order.
func printRegisterMaps(m *ir.Module) error {
	for _, f := range m.Funcs {
		regs, err := regalloc.Allocate(f)
		if err != nil {
			return err
		}
		fmt.Printf("function $%s:\n", f.Name)

		temps := make([]*ir.Temp, 0, len(regs))
		for t := range regs {
			temps = append(temps, t)
		}
		sort.Slice(temps, func(i, j int) bool { return temps[i].ID < temps[j].ID })
		for _, t := range temps {
			fmt.Printf("\t%s -> %s\n", t, regalloc.RegName(regs[t]))
		}
	}
	return nil
}
