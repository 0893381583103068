package compiler

import (
	"gomojo/pkg/quad"
	"gomojo/pkg/types"
)

type cubeKey struct {
	l, r types.Type
	op   quad.Opcode
}

// cube is the semantic cube. Missing entries are type errors.
var cube = map[cubeKey]types.Type{}

func init() {
	numeric := []types.Type{types.Int, types.Float}

	for _, l := range numeric {
		for _, r := range numeric {
			res := types.Float
			if l == types.Int && r == types.Int {
				res = types.Int
			}

			for _, op := range []quad.Opcode{quad.Add, quad.Sub, quad.Mul, quad.Div} {
				cube[cubeKey{l, r, op}] = res
			}

			for _, op := range []quad.Opcode{quad.Less, quad.Greater, quad.LessEq, quad.GreaterEq, quad.Equal, quad.NotEqual} {
				cube[cubeKey{l, r, op}] = types.Bool
			}
		}
	}

	cube[cubeKey{types.String, types.String, quad.Add}] = types.String

	for _, t := range []types.Type{types.String, types.Bool} {
		cube[cubeKey{t, t, quad.Equal}] = types.Bool
		cube[cubeKey{t, t, quad.NotEqual}] = types.Bool
	}

	cube[cubeKey{types.Bool, types.Bool, quad.And}] = types.Bool
	cube[cubeKey{types.Bool, types.Bool, quad.Or}] = types.Bool

	// assignment: left is the target
	for _, t := range []types.Type{types.Int, types.Float, types.String, types.Bool} {
		cube[cubeKey{t, t, quad.Assign}] = t
	}
	cube[cubeKey{types.Float, types.Int, quad.Assign}] = types.Float

	// unary operators take Invalid on the right
	cube[cubeKey{types.Bool, types.Invalid, quad.Not}] = types.Bool
	cube[cubeKey{types.Int, types.Invalid, quad.Neg}] = types.Int
	cube[cubeKey{types.Float, types.Invalid, quad.Neg}] = types.Float
}

// ResultType answers the type of l op r, or Invalid.
// For Assign, l is the target and r the assigned value.
// Unary operators pass Invalid as r.
func ResultType(l, r types.Type, op quad.Opcode) types.Type {
	t, ok := cube[cubeKey{l, r, op}]
	if !ok {
		return types.Invalid
	}

	return t
}
