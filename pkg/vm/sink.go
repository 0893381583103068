package vm

import (
	"fmt"

	"gomojo/pkg/quad"
)

// Sink receives the drawing operations of a running program with resolved
// arguments. Distances are in turtle units, angles in degrees.
type Sink interface {
	CreateTurtle() error
	Reset() error
	FinishDrawing() error
	PenUp() error
	PenDown() error
	BeginFill() error
	EndFill() error
	PenColor(color string) error
	FillColor(color string) error
	PenWidth(w float64) error
	MoveForward(d float64) error
	MoveRight(d float64) error
	MoveLeft(d float64) error
	TurnRight(deg float64) error
	TurnLeft(deg float64) error
	DrawSquare(side float64) error
	DrawTriangle(side float64) error
	DrawCircle(radius float64) error
	DrawRectangle(w, h float64) error
	SetPosition(x, y float64) error
	SetSpeed(s float64) error
}

// NopSink discards drawing.
type NopSink struct{}

func (NopSink) CreateTurtle() error                  { return nil }
func (NopSink) Reset() error                         { return nil }
func (NopSink) FinishDrawing() error                 { return nil }
func (NopSink) PenUp() error                         { return nil }
func (NopSink) PenDown() error                       { return nil }
func (NopSink) BeginFill() error                     { return nil }
func (NopSink) EndFill() error                       { return nil }
func (NopSink) PenColor(string) error                { return nil }
func (NopSink) FillColor(string) error               { return nil }
func (NopSink) PenWidth(float64) error               { return nil }
func (NopSink) MoveForward(float64) error            { return nil }
func (NopSink) MoveRight(float64) error              { return nil }
func (NopSink) MoveLeft(float64) error               { return nil }
func (NopSink) TurnRight(float64) error              { return nil }
func (NopSink) TurnLeft(float64) error               { return nil }
func (NopSink) DrawSquare(float64) error             { return nil }
func (NopSink) DrawTriangle(float64) error           { return nil }
func (NopSink) DrawCircle(float64) error             { return nil }
func (NopSink) DrawRectangle(float64, float64) error { return nil }
func (NopSink) SetPosition(float64, float64) error   { return nil }
func (NopSink) SetSpeed(float64) error               { return nil }

// Call is one recorded drawing operation.
type Call struct {
	Op   quad.Opcode
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%v%v", c.Op, c.Args)
}

// Recorder keeps every drawing call in order.
type Recorder struct {
	Calls []Call
}

func (r *Recorder) rec(op quad.Opcode, args ...any) error {
	r.Calls = append(r.Calls, Call{Op: op, Args: args})
	return nil
}

// Ops lists the recorded opcodes.
func (r *Recorder) Ops() []quad.Opcode {
	ops := make([]quad.Opcode, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

func (r *Recorder) CreateTurtle() error              { return r.rec(quad.CreateTurtle) }
func (r *Recorder) Reset() error                     { return r.rec(quad.Reset) }
func (r *Recorder) FinishDrawing() error             { return r.rec(quad.FinishDrawing) }
func (r *Recorder) PenUp() error                     { return r.rec(quad.PenUp) }
func (r *Recorder) PenDown() error                   { return r.rec(quad.PenDown) }
func (r *Recorder) BeginFill() error                 { return r.rec(quad.BeginFill) }
func (r *Recorder) EndFill() error                   { return r.rec(quad.EndFill) }
func (r *Recorder) PenColor(c string) error          { return r.rec(quad.PenColor, c) }
func (r *Recorder) FillColor(c string) error         { return r.rec(quad.FillColor, c) }
func (r *Recorder) PenWidth(w float64) error         { return r.rec(quad.PenWidth, w) }
func (r *Recorder) MoveForward(d float64) error      { return r.rec(quad.MoveForward, d) }
func (r *Recorder) MoveRight(d float64) error        { return r.rec(quad.MoveRight, d) }
func (r *Recorder) MoveLeft(d float64) error         { return r.rec(quad.MoveLeft, d) }
func (r *Recorder) TurnRight(a float64) error        { return r.rec(quad.TurnRight, a) }
func (r *Recorder) TurnLeft(a float64) error         { return r.rec(quad.TurnLeft, a) }
func (r *Recorder) DrawSquare(s float64) error       { return r.rec(quad.DrawSquare, s) }
func (r *Recorder) DrawTriangle(s float64) error     { return r.rec(quad.DrawTriangle, s) }
func (r *Recorder) DrawCircle(rad float64) error     { return r.rec(quad.DrawCircle, rad) }
func (r *Recorder) DrawRectangle(w, h float64) error { return r.rec(quad.DrawRectangle, w, h) }
func (r *Recorder) SetPosition(x, y float64) error   { return r.rec(quad.SetPosition, x, y) }
func (r *Recorder) SetSpeed(s float64) error         { return r.rec(quad.SetSpeed, s) }
