// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"fmt"
	"math"
	"strings"
)

// Printer renders a Module back to the textual IR syntax, the same
// syntax internal/asm parses.
type Printer struct {
	out strings.Builder
}

// Print returns the textual IR for an entire module.
func Print(m *Module) string {
	p := &Printer{}
	for _, d := range m.Datas {
		p.printData(d)
		p.out.WriteString("\n")
	}
	for _, f := range m.Funcs {
		p.printFunction(f)
		p.out.WriteString("\n")
	}
	return p.out.String()
}

// PrintFunction renders a single function.
func PrintFunction(f *Function) string {
	p := &Printer{}
	p.printFunction(f)
	return p.out.String()
}

func blockLabel(b *Block) string { return fmt.Sprintf("%s.%d", b.Name, b.ID) }

func (p *Printer) printData(d *DataDef) {
	if d.Export {
		p.out.WriteString("export\n")
	}
	p.out.WriteString(fmt.Sprintf("data $%s = align %d { ", d.Name, d.Align))
	for i, item := range d.Items {
		if i > 0 {
			p.out.WriteString(", ")
		}
		switch {
		case item.IsZero:
			p.out.WriteString(fmt.Sprintf("z %d", item.ZeroSize))
		case item.Cls == ClassS:
			p.out.WriteString(fmt.Sprintf("s s_%g", math.Float32frombits(uint32(item.Bits))))
		default:
			p.out.WriteString(fmt.Sprintf("%s %d", item.Cls, int64(item.Bits)))
		}
	}
	p.out.WriteString(" }\n")
}

func (p *Printer) printFunction(f *Function) {
	if f.Export {
		p.out.WriteString("export\n")
	}
	p.out.WriteString(fmt.Sprintf("function %s $%s(", f.RetCls, f.Name))
	for i, param := range f.Params {
		if i > 0 {
			p.out.WriteString(", ")
		}
		p.out.WriteString(fmt.Sprintf("%s %s", param.Cls, param))
	}
	p.out.WriteString(") {\n")
	for _, b := range f.Blocks() {
		p.printBlock(b)
	}
	p.out.WriteString("}\n")
}

func (p *Printer) printBlock(b *Block) {
	p.out.WriteString(fmt.Sprintf("@%s\n", blockLabel(b)))
	for _, phi := range b.Phis {
		p.out.WriteString("\t" + phi.String() + "\n")
	}
	for _, in := range b.Instrs {
		if in.Op == OPar {
			// the function signature already carries the parameters
			continue
		}
		p.out.WriteString("\t" + in.String() + "\n")
	}
	if b.Term != nil {
		p.out.WriteString("\t" + b.Term.String() + "\n")
	}
}
