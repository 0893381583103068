// Package types defines the value types of the mojo language.
package types

import "fmt"

// Type is the static type of a value, variable, or function result.
type Type int

const (
	Int Type = iota
	Float
	String
	Bool

	Void    // function without a result
	Invalid // rejected combination in the semantic cube
)

// Count is the number of storable types. Memory is partitioned per storable type.
const Count = int(Bool) + 1

var typeNames = [...]string{
	Int:     "int",
	Float:   "float",
	String:  "string",
	Bool:    "bool",
	Void:    "void",
	Invalid: "invalid",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Storable reports whether values of t occupy memory.
func (t Type) Storable() bool {
	return t >= Int && t <= Bool
}

// Numeric reports whether t takes part in arithmetic.
func (t Type) Numeric() bool {
	return t == Int || t == Float
}

// Parse maps a type keyword to its Type.
func Parse(name string) (Type, bool) {
	switch name {
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "string":
		return String, true
	case "bool":
		return Bool, true
	case "void":
		return Void, true
	}
	return Invalid, false
}
