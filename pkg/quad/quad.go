// Package quad defines the intermediate code: quadruples and their operands.
package quad

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"gomojo/pkg/memory"
)

// Opcode is the operation of a quadruple.
type Opcode int

const (
	Nop Opcode = iota

	// Control
	Goto  // result: Label
	GotoF // left: bool; result: Label

	// Data movement and arithmetic
	Assign // left -> result
	Add
	Sub
	Mul
	Div
	Neg

	// Relational
	Less
	Greater
	LessEq
	GreaterEq
	Equal
	NotEqual

	// Logical
	And
	Or
	Not

	// I/O
	Print  // left
	Read   // left: prompt; result: typed slot
	Verify // left: index; right: Imm lower; result: Imm upper

	// Call protocol
	Era     // left: Func
	Param   // left: argument; result: parameter address in callee record
	Gosub   // left: Func; result: Label entry
	Return  // left: value; result: function return slot
	EndProc // pops the activation record

	// Drawing. Arguments in left and right.
	CreateTurtle
	Reset
	FinishDrawing
	PenUp
	PenDown
	BeginFill
	EndFill
	PenColor
	FillColor
	PenWidth
	MoveForward
	MoveRight
	MoveLeft
	TurnRight
	TurnLeft
	DrawSquare
	DrawTriangle
	DrawCircle
	DrawRectangle
	SetPosition
	SetSpeed

	opcodeCount
)

var opNames = [...]string{
	Nop:           "NOP",
	Goto:          "GOTO",
	GotoF:         "GOTOF",
	Assign:        "=",
	Add:           "+",
	Sub:           "-",
	Mul:           "*",
	Div:           "/",
	Neg:           "NEG",
	Less:          "<",
	Greater:       ">",
	LessEq:        "<=",
	GreaterEq:     ">=",
	Equal:         "==",
	NotEqual:      "!=",
	And:           "AND",
	Or:            "OR",
	Not:           "NOT",
	Print:         "PRINT",
	Read:          "READ",
	Verify:        "VERF_INDEX",
	Era:           "ERA",
	Param:         "PARAM",
	Gosub:         "GOSUB",
	Return:        "RETURN",
	EndProc:       "ENDPROC",
	CreateTurtle:  "create_turtle",
	Reset:         "reset",
	FinishDrawing: "finish_drawing",
	PenUp:         "pen_up",
	PenDown:       "pen_down",
	BeginFill:     "begin_fill",
	EndFill:       "end_fill",
	PenColor:      "pen_color",
	FillColor:     "fill_color",
	PenWidth:      "pen_width",
	MoveForward:   "move_forward",
	MoveRight:     "move_right",
	MoveLeft:      "move_left",
	TurnRight:     "turn_right",
	TurnLeft:      "turn_left",
	DrawSquare:    "draw_square",
	DrawTriangle:  "draw_triangle",
	DrawCircle:    "draw_circle",
	DrawRectangle: "draw_rectangle",
	SetPosition:   "set_position",
	SetSpeed:      "set_speed",
}

func (op Opcode) String() string {
	if op >= 0 && op < opcodeCount {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

func (op Opcode) Valid() bool { return op > Nop && op < opcodeCount }

// IsDrawing reports whether op is dispatched to the graphics sink.
func (op Opcode) IsDrawing() bool { return op >= CreateTurtle && op <= SetSpeed }

// DrawArity is the number of arguments a drawing opcode takes.
func (op Opcode) DrawArity() int {
	switch op {
	case DrawRectangle, SetPosition:
		return 2
	case PenColor, FillColor, PenWidth, MoveForward, MoveRight, MoveLeft,
		TurnRight, TurnLeft, DrawSquare, DrawTriangle, DrawCircle, SetSpeed:
		return 1
	}

	return 0
}

// TakesColor reports whether the drawing argument is a color string.
func (op Opcode) TakesColor() bool { return op == PenColor || op == FillColor }

// Kind tags an Operand.
type Kind int

const (
	None     Kind = iota
	Direct        // Value is an address
	Indirect      // Value is an address holding the address of the data
	Label         // Value is a quadruple index
	Pending       // jump target not known yet
	Func          // Value is a function id
	Imm           // Value is an immediate integer (array bounds)
)

// Operand is one field of a quadruple.
type Operand struct {
	Kind  Kind
	Value int
}

func NoOperand() Operand                 { return Operand{} }
func Addr(a memory.Address) Operand      { return Operand{Kind: Direct, Value: int(a)} }
func Deref(a memory.Address) Operand     { return Operand{Kind: Indirect, Value: int(a)} }
func Target(index int) Operand           { return Operand{Kind: Label, Value: index} }
func Unresolved() Operand                { return Operand{Kind: Pending} }
func FuncRef(id int) Operand             { return Operand{Kind: Func, Value: id} }
func Immediate(v int) Operand            { return Operand{Kind: Imm, Value: v} }

func (o Operand) Address() memory.Address { return memory.Address(o.Value) }

// IsData reports whether the operand names storage.
func (o Operand) IsData() bool { return o.Kind == Direct || o.Kind == Indirect }

func (o Operand) String() string {
	switch o.Kind {
	case None:
		return "_"
	case Direct:
		return fmt.Sprintf("%d", o.Value)
	case Indirect:
		return fmt.Sprintf("(%d)", o.Value)
	case Label:
		return fmt.Sprintf("@%d", o.Value)
	case Pending:
		return "@?"
	case Func:
		return fmt.Sprintf("f%d", o.Value)
	case Imm:
		return fmt.Sprintf("#%d", o.Value)
	}

	return fmt.Sprintf("Operand(%d:%d)", int(o.Kind), o.Value)
}

// Quadruple is one instruction.
type Quadruple struct {
	Index  int
	Op     Opcode
	Left   Operand
	Right  Operand
	Result Operand
}

func (q Quadruple) String() string {
	return fmt.Sprintf("%4d  %-14s %-8v %-8v %v", q.Index, q.Op, q.Left, q.Right, q.Result)
}

// List is the growing quadruple list. Jump targets are written once.
type List struct {
	quads []Quadruple
}

// Emit appends a quadruple and returns its index.
func (l *List) Emit(op Opcode, left, right, result Operand) int {
	i := len(l.quads)
	l.quads = append(l.quads, Quadruple{Index: i, Op: op, Left: left, Right: right, Result: result})

	return i
}

// Next is the index the next Emit will use.
func (l *List) Next() int { return len(l.quads) }

func (l *List) Quads() []Quadruple { return l.quads }

// Backpatch resolves the pending jump target of quadruple i.
func (l *List) Backpatch(i, target int) error {
	if i < 0 || i >= len(l.quads) {
		return errors.New("backpatch: no quadruple %d", i)
	}

	q := &l.quads[i]
	if q.Result.Kind != Pending {
		return errors.New("backpatch: quadruple %d target already set to %v", i, q.Result)
	}

	q.Result = Target(target)

	return nil
}

// Pending lists quadruples whose targets are still unresolved.
func (l *List) Pending() (r []int) {
	for _, q := range l.quads {
		if q.Result.Kind == Pending {
			r = append(r, q.Index)
		}
	}

	return r
}

func (l *List) String() string {
	var b strings.Builder

	for _, q := range l.quads {
		b.WriteString(q.String())
		b.WriteByte('\n')
	}

	return b.String()
}
