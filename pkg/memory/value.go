package memory

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"gomojo/pkg/types"
)

// Value is a tagged runtime value. Only the field matching Type is meaningful.
type Value struct {
	Type types.Type
	I    int
	F    float64
	S    string
	B    bool
}

func IntValue(i int) Value       { return Value{Type: types.Int, I: i} }
func FloatValue(f float64) Value { return Value{Type: types.Float, F: f} }
func StringValue(s string) Value { return Value{Type: types.String, S: s} }
func BoolValue(b bool) Value     { return Value{Type: types.Bool, B: b} }

// Zero is the initial content of every slot of type t.
func Zero(t types.Type) Value { return Value{Type: t} }

// Number returns v as a float64, promoting ints.
func (v Value) Number() float64 {
	if v.Type == types.Int {
		return float64(v.I)
	}

	return v.F
}

// Convert adapts v for storage in a slot of type t.
// The only implicit conversion is int to float.
func (v Value) Convert(t types.Type) (Value, error) {
	switch {
	case v.Type == t:
		return v, nil
	case v.Type == types.Int && t == types.Float:
		return FloatValue(float64(v.I)), nil
	}

	return Zero(t), errors.New("cannot store %v value in %v slot", v.Type, t)
}

// String formats v the way print shows it.
func (v Value) String() string {
	switch v.Type {
	case types.Int:
		return strconv.Itoa(v.I)
	case types.Float:
		return formatFloat(v.F)
	case types.String:
		return v.S
	case types.Bool:
		if v.B {
			return "True"
		}

		return "False"
	}

	return fmt.Sprintf("<%v>", v.Type)
}

// MarshalText makes values readable in JSON dumps.
func (v Value) MarshalText() ([]byte, error) {
	if v.Type == types.String {
		return []byte(strconv.Quote(v.S)), nil
	}

	return []byte(v.String()), nil
}

// Parse reads a literal of type t as typed by the user.
func Parse(t types.Type, s string) (Value, error) {
	s = strings.TrimSpace(s)

	switch t {
	case types.Int:
		i, err := strconv.Atoi(s)
		if err != nil {
			return Zero(t), errors.New("%q is not an int", s)
		}

		return IntValue(i), nil
	case types.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Zero(t), errors.New("%q is not a float", s)
		}

		return FloatValue(f), nil
	case types.String:
		return StringValue(s), nil
	case types.Bool:
		switch s {
		case "True", "true":
			return BoolValue(true), nil
		case "False", "false":
			return BoolValue(false), nil
		}

		return Zero(t), errors.New("%q is not a bool", s)
	}

	return Zero(t), errors.New("cannot read %v value", t)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	if a := math.Abs(f); a != 0 && (a >= 1e16 || a < 1e-4) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}
