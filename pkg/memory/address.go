// Package memory implements the segmented address space shared by the compiler and the VM.
//
// An Address encodes its memory class and value type arithmetically:
//
//	Base + class*ClassSpan + type*Partition + offset
//
// so Class and Type never search a table.
package memory

import (
	"fmt"

	"gomojo/pkg/types"
)

const (
	Base      = 10000
	Partition = 10000                               // addresses per (class, type)
	ClassSpan = Partition * types.Count             // addresses per class
	Limit     = Address(Base + ClassSpan*ClassCount) // first address past the space
)

// Class is the lifetime and visibility of a storage slot.
type Class int

const (
	Global Class = iota
	Local
	Temporary
	Constant

	ClassCount = int(Constant) + 1
)

var classNames = [...]string{
	Global:    "global",
	Local:     "local",
	Temporary: "temp",
	Constant:  "const",
}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Address is a key into the memory map.
type Address int

// Make builds the address of slot off in partition (c, t).
func Make(c Class, t types.Type, off int) Address {
	return Address(Base + int(c)*ClassSpan + int(t)*Partition + off)
}

func (a Address) Valid() bool {
	return a >= Base && a < Limit
}

func (a Address) Class() Class {
	return Class((int(a) - Base) / ClassSpan)
}

func (a Address) Type() types.Type {
	return types.Type((int(a) - Base) % ClassSpan / Partition)
}

func (a Address) Offset() int {
	return (int(a) - Base) % Partition
}

// FunctionRelative reports whether a resolves through an activation record.
func (a Address) FunctionRelative() bool {
	c := a.Class()
	return c == Local || c == Temporary
}

// Counts holds one counter per storable type.
type Counts [types.Count]int

func (c Counts) Total() (n int) {
	for _, x := range c {
		n += x
	}

	return n
}

func (c Counts) String() string {
	return fmt.Sprintf("i%d f%d s%d b%d", c[types.Int], c[types.Float], c[types.String], c[types.Bool])
}
