package vm

import (
	"gomojo/pkg/diag"
	"gomojo/pkg/quad"
)

func (v *VM) draw(q quad.Quadruple) error {
	var args [2]float64
	var color string

	for i := 0; i < q.Op.DrawArity(); i++ {
		o := q.Left
		if i == 1 {
			o = q.Right
		}

		x, err := v.load(q, o)
		if err != nil {
			return err
		}

		if q.Op.TakesColor() {
			color = x.S
		} else {
			args[i] = x.Number()
		}
	}

	s := v.sink()

	var err error

	switch q.Op {
	case quad.CreateTurtle:
		err = s.CreateTurtle()
	case quad.Reset:
		err = s.Reset()
	case quad.FinishDrawing:
		err = s.FinishDrawing()
	case quad.PenUp:
		err = s.PenUp()
	case quad.PenDown:
		err = s.PenDown()
	case quad.BeginFill:
		err = s.BeginFill()
	case quad.EndFill:
		err = s.EndFill()
	case quad.PenColor:
		err = s.PenColor(color)
	case quad.FillColor:
		err = s.FillColor(color)
	case quad.PenWidth:
		err = s.PenWidth(args[0])
	case quad.MoveForward:
		err = s.MoveForward(args[0])
	case quad.MoveRight:
		err = s.MoveRight(args[0])
	case quad.MoveLeft:
		err = s.MoveLeft(args[0])
	case quad.TurnRight:
		err = s.TurnRight(args[0])
	case quad.TurnLeft:
		err = s.TurnLeft(args[0])
	case quad.DrawSquare:
		err = s.DrawSquare(args[0])
	case quad.DrawTriangle:
		err = s.DrawTriangle(args[0])
	case quad.DrawCircle:
		err = s.DrawCircle(args[0])
	case quad.DrawRectangle:
		err = s.DrawRectangle(args[0], args[1])
	case quad.SetPosition:
		err = s.SetPosition(args[0], args[1])
	case quad.SetSpeed:
		err = s.SetSpeed(args[0])
	}

	if err != nil {
		return diag.Runtime(diag.ErrRuntime, q.Index, "%v: %v", q.Op, err)
	}

	return nil
}
