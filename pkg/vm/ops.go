package vm

import (
	"tlog.app/go/errors"

	"gomojo/pkg/memory"
	"gomojo/pkg/quad"
	"gomojo/pkg/types"
)

var ErrDivisionByZero = errors.New("division by zero")

// binary evaluates l op r. Operand types were checked at compile time,
// so a mismatch here means corrupted code.
func binary(op quad.Opcode, l, r memory.Value) (memory.Value, error) {
	switch op {
	case quad.And:
		return memory.BoolValue(l.B && r.B), nil
	case quad.Or:
		return memory.BoolValue(l.B || r.B), nil
	case quad.Equal:
		return memory.BoolValue(equal(l, r)), nil
	case quad.NotEqual:
		return memory.BoolValue(!equal(l, r)), nil
	}

	if l.Type == types.String && r.Type == types.String && op == quad.Add {
		return memory.StringValue(l.S + r.S), nil
	}

	if !l.Type.Numeric() || !r.Type.Numeric() {
		return memory.Value{}, errors.New("%v applied to %v and %v", op, l.Type, r.Type)
	}

	switch op {
	case quad.Less:
		return memory.BoolValue(l.Number() < r.Number()), nil
	case quad.Greater:
		return memory.BoolValue(l.Number() > r.Number()), nil
	case quad.LessEq:
		return memory.BoolValue(l.Number() <= r.Number()), nil
	case quad.GreaterEq:
		return memory.BoolValue(l.Number() >= r.Number()), nil
	}

	if l.Type == types.Int && r.Type == types.Int {
		return intArith(op, l.I, r.I)
	}

	return floatArith(op, l.Number(), r.Number())
}

func intArith(op quad.Opcode, l, r int) (memory.Value, error) {
	switch op {
	case quad.Add:
		return memory.IntValue(l + r), nil
	case quad.Sub:
		return memory.IntValue(l - r), nil
	case quad.Mul:
		return memory.IntValue(l * r), nil
	case quad.Div:
		if r == 0 {
			return memory.Value{}, ErrDivisionByZero
		}

		return memory.IntValue(l / r), nil
	}

	return memory.Value{}, errors.New("%v is not arithmetic", op)
}

func floatArith(op quad.Opcode, l, r float64) (memory.Value, error) {
	switch op {
	case quad.Add:
		return memory.FloatValue(l + r), nil
	case quad.Sub:
		return memory.FloatValue(l - r), nil
	case quad.Mul:
		return memory.FloatValue(l * r), nil
	case quad.Div:
		if r == 0 {
			return memory.Value{}, ErrDivisionByZero
		}

		return memory.FloatValue(l / r), nil
	}

	return memory.Value{}, errors.New("%v is not arithmetic", op)
}

func equal(l, r memory.Value) bool {
	if l.Type.Numeric() && r.Type.Numeric() {
		return l.Number() == r.Number()
	}

	return l == r
}

func unary(op quad.Opcode, x memory.Value) (memory.Value, error) {
	switch {
	case op == quad.Not && x.Type == types.Bool:
		return memory.BoolValue(!x.B), nil
	case op == quad.Neg && x.Type == types.Int:
		return memory.IntValue(-x.I), nil
	case op == quad.Neg && x.Type == types.Float:
		return memory.FloatValue(-x.F), nil
	}

	return memory.Value{}, errors.New("%v applied to %v", op, x.Type)
}
