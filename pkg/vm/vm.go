// Package vm executes compiled mojo programs.
//
// The machine walks the quadruple list with an instruction pointer, resolving
// local and temporary addresses through the current activation record and
// everything else through global and constant storage.
package vm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"gomojo/pkg/compiler"
	"gomojo/pkg/diag"
	"gomojo/pkg/memory"
	"gomojo/pkg/quad"
)

// frame is an activation record.
type frame struct {
	fn  *compiler.Function
	rec *memory.Record
	ret int // instruction to resume at in the caller
}

type VM struct {
	prog *compiler.Program
	mem  *memory.Map

	IP     int
	Halted bool
	Steps  int
	Err    error // error that halted the machine

	// MaxSteps stops Run with a resource error once exceeded; 0 means no limit.
	MaxSteps int

	frames  []*frame
	pending []*frame // records requested by ERA, not yet entered

	// Output receives print and read prompts. If nil, os.Stdout is used.
	Output io.Writer
	// Input is read line by line by read. If nil, os.Stdin is used.
	Input io.Reader
	// Sink receives drawing operations. If nil, they are discarded.
	Sink Sink

	in *bufio.Reader
}

// New prepares prog for execution. main's activation record is current
// before the first step.
func New(prog *compiler.Program) *VM {
	v := &VM{
		prog: prog,
		mem:  memory.NewMap(prog.Globals, prog.Constants),
	}

	v.frames = append(v.frames, &frame{
		fn:  prog.Main,
		rec: memory.NewRecord(prog.Main.Locals, prog.Main.Temps),
		ret: len(prog.Quads),
	})

	return v
}

func (v *VM) outputSink() io.Writer {
	if v.Output != nil {
		return v.Output
	}
	return os.Stdout
}

func (v *VM) sink() Sink {
	if v.Sink != nil {
		return v.Sink
	}
	return NopSink{}
}

func (v *VM) input() *bufio.Reader {
	if v.in != nil {
		return v.in
	}

	r := v.Input
	if r == nil {
		r = os.Stdin
	}

	if br, ok := r.(*bufio.Reader); ok {
		v.in = br
	} else {
		v.in = bufio.NewReader(r)
	}

	return v.in
}

// Depth is the number of active records, main included.
func (v *VM) Depth() int { return len(v.frames) }

func (v *VM) current() *frame { return v.frames[len(v.frames)-1] }

// Run steps until the program halts, fails, or ctx is canceled.
func (v *VM) Run(ctx context.Context) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run", "program", v.prog.Name)
	defer tr.Finish("err", &err)

	for !v.Halted {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if v.MaxSteps > 0 && v.Steps >= v.MaxSteps {
			v.Halted = true
			v.Err = diag.Runtime(diag.ErrResource, v.IP, "step limit %d reached", v.MaxSteps)

			return v.Err
		}

		if err = v.Step(); err != nil {
			return err
		}
	}

	tr.Printw("halted", "steps", v.Steps, "ip", v.IP)

	return nil
}

// Step executes one quadruple. Reaching the end of the list halts normally.
func (v *VM) Step() error {
	if v.Halted {
		return v.Err
	}

	if v.IP < 0 || v.IP >= len(v.prog.Quads) {
		v.Halted = true
		return nil
	}

	q := v.prog.Quads[v.IP]

	if tlog.If("exec") {
		tlog.Printw("exec", "ip", v.IP, "q", q.String(), "depth", len(v.frames))
	}

	next, err := v.exec(q)
	if err != nil {
		v.Halted = true
		v.Err = err

		return err
	}

	v.IP = next
	v.Steps++

	return nil
}

func (v *VM) exec(q quad.Quadruple) (next int, err error) {
	next = q.Index + 1

	switch op := q.Op; {
	case op == quad.Goto:
		return q.Result.Value, nil

	case op == quad.GotoF:
		c, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		if !c.B {
			return q.Result.Value, nil
		}

	case op == quad.Assign, op == quad.Return:
		x, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		err = v.store(q, q.Result, x)
		if err != nil {
			return 0, err
		}

	case op >= quad.Add && op <= quad.Div, op >= quad.Less && op <= quad.Or:
		l, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		r, err := v.load(q, q.Right)
		if err != nil {
			return 0, err
		}

		x, err := binary(op, l, r)
		if errors.Is(err, ErrDivisionByZero) {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "division by zero")
		}
		if err != nil {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
		}

		err = v.store(q, q.Result, x)
		if err != nil {
			return 0, err
		}

	case op == quad.Neg, op == quad.Not:
		x, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		x, err = unary(op, x)
		if err != nil {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
		}

		err = v.store(q, q.Result, x)
		if err != nil {
			return 0, err
		}

	case op == quad.Print:
		x, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		_, err = fmt.Fprintln(v.outputSink(), x.String())
		if err != nil {
			return 0, errors.Wrap(err, "print")
		}

	case op == quad.Read:
		err = v.read(q)
		if err != nil {
			return 0, err
		}

	case op == quad.Verify:
		x, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		lo, hi := q.Right.Value, q.Result.Value
		if x.I < lo || x.I >= hi {
			return 0, diag.Runtime(diag.ErrBounds, q.Index, "index %d out of range [%d, %d)", x.I, lo, hi)
		}

	case op == quad.Era:
		fn, err := v.function(q)
		if err != nil {
			return 0, err
		}

		v.pending = append(v.pending, &frame{
			fn:  fn,
			rec: memory.NewRecord(fn.Locals, fn.Temps),
		})

	case op == quad.Param:
		if len(v.pending) == 0 {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "PARAM without ERA")
		}

		x, err := v.load(q, q.Left)
		if err != nil {
			return 0, err
		}

		callee := v.pending[len(v.pending)-1]

		err = v.mem.Store(q.Result.Address(), x, callee.rec)
		if err != nil {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
		}

	case op == quad.Gosub:
		if len(v.pending) == 0 {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "GOSUB without ERA")
		}

		f := v.pending[len(v.pending)-1]
		v.pending = v.pending[:len(v.pending)-1]

		f.ret = next
		v.frames = append(v.frames, f)

		tlog.V("call").Printw("call", "func", f.fn.Name, "entry", f.fn.Entry, "depth", len(v.frames))

		return f.fn.Entry, nil

	case op == quad.EndProc:
		if len(v.frames) <= 1 {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "ENDPROC outside a function")
		}

		f := v.current()
		v.frames = v.frames[:len(v.frames)-1]

		return f.ret, nil

	case op.IsDrawing():
		err = v.draw(q)
		if err != nil {
			return 0, err
		}

	default:
		return 0, diag.Runtime(diag.ErrRuntime, q.Index, "unknown opcode %v", op)
	}

	return next, nil
}

func (v *VM) function(q quad.Quadruple) (*compiler.Function, error) {
	fn, ok := v.prog.Dir.ByID(q.Left.Value)
	if !ok {
		return nil, diag.Runtime(diag.ErrRuntime, q.Index, "no function %d", q.Left.Value)
	}

	return fn, nil
}

// resolve turns a data operand into the address it designates,
// following one indirection for array elements.
func (v *VM) resolve(q quad.Quadruple, o quad.Operand) (memory.Address, error) {
	switch o.Kind {
	case quad.Direct:
		return o.Address(), nil
	case quad.Indirect:
		p, err := v.mem.Load(o.Address(), v.current().rec)
		if err != nil {
			return 0, diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
		}

		return memory.Address(p.I), nil
	}

	return 0, diag.Runtime(diag.ErrRuntime, q.Index, "operand %v is not data", o)
}

func (v *VM) load(q quad.Quadruple, o quad.Operand) (memory.Value, error) {
	a, err := v.resolve(q, o)
	if err != nil {
		return memory.Value{}, err
	}

	x, err := v.mem.Load(a, v.current().rec)
	if err != nil {
		return memory.Value{}, diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
	}

	return x, nil
}

func (v *VM) store(q quad.Quadruple, o quad.Operand, x memory.Value) error {
	a, err := v.resolve(q, o)
	if err != nil {
		return err
	}

	err = v.mem.Store(a, x, v.current().rec)
	if err != nil {
		return diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
	}

	return nil
}

// read prints the prompt, reads one line and parses it by the target type.
func (v *VM) read(q quad.Quadruple) error {
	prompt, err := v.load(q, q.Left)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(v.outputSink(), prompt.String())
	if err != nil {
		return errors.Wrap(err, "prompt")
	}

	line, err := v.input().ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return diag.Runtime(diag.ErrRuntime, q.Index, "read input: %v", err)
	}

	a, err := v.resolve(q, q.Result)
	if err != nil {
		return err
	}

	x, err := memory.Parse(a.Type(), strings.TrimRight(line, "\r\n"))
	if err != nil {
		return diag.Runtime(diag.ErrRuntime, q.Index, "%v", err)
	}

	return v.store(q, q.Result, x)
}
