package compiler

import (
	"fmt"
	"strings"

	"gomojo/pkg/memory"
	"gomojo/pkg/quad"
)

// Program is a finished compilation, ready for the virtual machine.
type Program struct {
	Name  string
	Quads []quad.Quadruple
	Dir   *FuncDir

	Global *Function
	Main   *Function

	Globals   memory.Counts   // sizes global storage, including return slots
	Constants *memory.Segment // interned literals
}

// Listing renders the quadruple list, one per line.
func (p *Program) Listing() string {
	var sb strings.Builder

	for _, q := range p.Quads {
		sb.WriteString(q.String())
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Summary is a short description for logs.
func (p *Program) Summary() string {
	return fmt.Sprintf("%s: %d quadruples, %d functions, globals [%v]", p.Name, len(p.Quads), len(p.Dir.Functions())-2, p.Globals)
}
