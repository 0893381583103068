package compiler

import (
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"gomojo/pkg/diag"
	"gomojo/pkg/memory"
	"gomojo/pkg/quad"
	"gomojo/pkg/types"
)

// parenMark on the operator stack blocks reductions across a parenthesis,
// an index expression, or a call's argument list.
const parenMark = quad.Nop

// MainName is the scope of the main block.
const MainName = "main"

type callCursor struct {
	fn   *Function
	next int // next parameter to bind
}

// Translator turns parser events into quadruples in a single pass.
// It owns all compile-time state of one compilation.
type Translator struct {
	alloc *memory.Allocator
	dir   *FuncDir
	quads quad.List

	operands  []quad.Operand
	typs      []types.Type
	operators []quad.Opcode
	jumps     []int
	dims      []*Variable
	calls     []callCursor

	returns  []int // gotos following return in the current function
	returned bool
	lastCall *Function

	name  string
	scope string
	line  int
	main  *Function
}

func NewTranslator() *Translator {
	alloc := memory.NewAllocator()

	return &Translator{
		alloc: alloc,
		dir:   NewFuncDir(alloc),
	}
}

// SetLine records the source line used in error messages.
func (t *Translator) SetLine(line int) { t.line = line }

func (t *Translator) Dir() *FuncDir { return t.dir }

func (t *Translator) Quads() *quad.List { return &t.quads }

func (t *Translator) errorf(kind error, format string, args ...any) error {
	e := diag.New(kind, t.line, format, args...)
	e.From = loc.Caller(1)

	return e
}

func (t *Translator) at(err error) error {
	return diag.At(err, t.line)
}

func (t *Translator) emit(op quad.Opcode, l, r, res quad.Operand) int {
	i := t.quads.Emit(op, l, r, res)

	tlog.V("emit").Printw("emit", "q", i, "op", op, "l", l, "r", r, "res", res, "scope", t.scope, "line", t.line, "from", loc.Callers(1, 2))

	return i
}

func (t *Translator) backpatch(i, target int) error {
	err := t.quads.Backpatch(i, target)
	if err != nil {
		return errors.Wrap(err, "line %d", t.line)
	}

	return nil
}

func (t *Translator) push(o quad.Operand, typ types.Type) {
	t.operands = append(t.operands, o)
	t.typs = append(t.typs, typ)
}

func (t *Translator) pop() (quad.Operand, types.Type) {
	last := len(t.operands) - 1
	o, typ := t.operands[last], t.typs[last]

	t.operands = t.operands[:last]
	t.typs = t.typs[:last]

	return o, typ
}

func (t *Translator) popJump() int {
	last := len(t.jumps) - 1
	j := t.jumps[last]
	t.jumps = t.jumps[:last]

	return j
}

func (t *Translator) topOperator() quad.Opcode {
	if len(t.operators) == 0 {
		return parenMark
	}

	return t.operators[len(t.operators)-1]
}

func (t *Translator) popOperator() quad.Opcode {
	last := len(t.operators) - 1
	op := t.operators[last]
	t.operators = t.operators[:last]

	return op
}

func (t *Translator) temp(typ types.Type) (memory.Address, error) {
	a, err := t.alloc.Temporary(typ)
	if err != nil {
		return 0, t.at(err)
	}

	err = t.dir.AddTemporary(t.scope, typ)
	if err != nil {
		return 0, t.at(err)
	}

	return a, nil
}

func (t *Translator) constant(v memory.Value) error {
	a, err := t.alloc.Constant(v)
	if err != nil {
		return t.at(err)
	}

	t.push(quad.Addr(a), v.Type)

	return nil
}

func (t *Translator) current() *Function {
	f, _ := t.dir.Function(t.scope)
	return f
}

// StartProgram opens the global scope and emits the jump to main.
func (t *Translator) StartProgram(name string) error {
	_, err := t.dir.DeclareGlobalScope(name)
	if err != nil {
		return t.at(err)
	}

	t.name = name
	t.scope = name

	t.emit(quad.Goto, quad.NoOperand(), quad.NoOperand(), quad.Unresolved())

	return nil
}

// DeclareVariables declares names of type typ in the current scope, in order.
func (t *Translator) DeclareVariables(names []string, typ types.Type) error {
	for _, name := range names {
		_, err := t.dir.DeclareVariable(t.scope, typ, name)
		if err != nil {
			return t.at(err)
		}
	}

	return nil
}

func (t *Translator) DeclareArray(name string, size int, typ types.Type) error {
	_, err := t.dir.DeclareArray(t.scope, typ, name, size)
	if err != nil {
		return t.at(err)
	}

	return nil
}

// StartFunction declares a function with its parameters and records its entry.
func (t *Translator) StartFunction(name string, ret types.Type, ptypes []types.Type, pnames []string) error {
	_, err := t.dir.DeclareFunction(name, ret)
	if err != nil {
		return t.at(err)
	}

	t.scope = name
	t.returns = t.returns[:0]
	t.returned = false

	err = t.dir.DeclareParameters(name, ptypes, pnames)
	if err != nil {
		return t.at(err)
	}

	err = t.dir.RecordEntry(name, t.quads.Next())
	if err != nil {
		return t.at(err)
	}

	return nil
}

// EndFunction checks the return contract, emits ENDPROC and resolves the
// jumps that follow each return to it.
func (t *Translator) EndFunction() error {
	f := t.current()

	if f.Return != types.Void && !t.returned {
		return t.errorf(diag.ErrReturnContract, "function %q must return a %v value", f.Name, f.Return)
	}

	end := t.emit(quad.EndProc, quad.NoOperand(), quad.NoOperand(), quad.NoOperand())

	for _, j := range t.returns {
		if err := t.backpatch(j, end); err != nil {
			return err
		}
	}

	t.returns = t.returns[:0]
	t.alloc.ResetTemporaries()
	t.scope = t.name

	return nil
}

// StartMain opens the main scope and resolves quadruple 0 to its entry.
func (t *Translator) StartMain() error {
	f, err := t.dir.DeclareFunction(MainName, types.Void)
	if err != nil {
		return t.at(err)
	}

	t.main = f
	t.scope = MainName
	t.returned = false

	entry := t.quads.Next()

	err = t.dir.RecordEntry(MainName, entry)
	if err != nil {
		return t.at(err)
	}

	return t.backpatch(0, entry)
}

// FinishProgram closes main and verifies every working stack drained.
func (t *Translator) FinishProgram() (*Program, error) {
	if t.main == nil {
		return nil, t.errorf(diag.ErrSyntax, "program has no main block")
	}

	switch {
	case len(t.operands) != 0, len(t.typs) != 0:
		return nil, errors.New("operand stack not empty: %v", t.operands)
	case len(t.operators) != 0:
		return nil, errors.New("operator stack not empty: %v", t.operators)
	case len(t.jumps) != 0:
		return nil, errors.New("jump stack not empty: %v", t.jumps)
	case len(t.dims) != 0, len(t.calls) != 0:
		return nil, errors.New("unfinished index or call")
	}

	if p := t.quads.Pending(); len(p) != 0 {
		return nil, errors.New("unresolved jumps: %v", p)
	}

	g, _ := t.dir.Function(t.name)

	return &Program{
		Name:      t.name,
		Quads:     t.quads.Quads(),
		Dir:       t.dir,
		Global:    g,
		Main:      t.main,
		Globals:   t.alloc.Count(memory.Global),
		Constants: t.alloc.Constants(),
	}, nil
}

// PushVariable pushes a scalar variable operand.
func (t *Translator) PushVariable(name string) error {
	v, ok := t.dir.Lookup(t.scope, name)
	if !ok {
		return t.errorf(diag.ErrDeclaration, "undeclared variable %q", name)
	}

	if v.Array {
		return t.errorf(diag.ErrType, "array %q used without an index", name)
	}

	t.push(quad.Addr(v.Addr), v.Type)

	return nil
}

func (t *Translator) PushInt(v int) error       { return t.constant(memory.IntValue(v)) }
func (t *Translator) PushFloat(v float64) error { return t.constant(memory.FloatValue(v)) }
func (t *Translator) PushString(v string) error { return t.constant(memory.StringValue(v)) }
func (t *Translator) PushBool(v bool) error     { return t.constant(memory.BoolValue(v)) }

func (t *Translator) PushOperator(op quad.Opcode) {
	t.operators = append(t.operators, op)
}

func (t *Translator) OpenParen() {
	t.operators = append(t.operators, parenMark)
}

func (t *Translator) CloseParen() error {
	if len(t.operators) == 0 || t.topOperator() != parenMark {
		return errors.New("line %d: unbalanced parenthesis marker", t.line)
	}

	t.popOperator()

	return nil
}

// ReduceTerm reduces a pending * or /.
func (t *Translator) ReduceTerm() error {
	return t.reduce(quad.Mul, quad.Div)
}

// ReduceExp reduces a pending + or -.
func (t *Translator) ReduceExp() error {
	return t.reduce(quad.Add, quad.Sub)
}

func (t *Translator) ReduceRelational() error {
	return t.reduce(quad.Less, quad.Greater, quad.LessEq, quad.GreaterEq, quad.Equal, quad.NotEqual)
}

func (t *Translator) ReduceLogical() error {
	return t.reduce(quad.And, quad.Or)
}

func (t *Translator) reduce(class ...quad.Opcode) error {
	top := t.topOperator()
	if top == parenMark {
		return nil
	}

	found := false
	for _, op := range class {
		found = found || op == top
	}

	if !found {
		return nil
	}

	op := t.popOperator()
	r, rt := t.pop()
	l, lt := t.pop()

	res := ResultType(lt, rt, op)
	if res == types.Invalid {
		return t.errorf(diag.ErrType, "operator %v is not defined for %v and %v", op, lt, rt)
	}

	a, err := t.temp(res)
	if err != nil {
		return err
	}

	t.emit(op, l, r, quad.Addr(a))
	t.push(quad.Addr(a), res)

	return nil
}

func (t *Translator) unary(op quad.Opcode) error {
	x, xt := t.pop()

	res := ResultType(xt, types.Invalid, op)
	if res == types.Invalid {
		return t.errorf(diag.ErrType, "operator %v is not defined for %v", op, xt)
	}

	a, err := t.temp(res)
	if err != nil {
		return err
	}

	t.emit(op, x, quad.NoOperand(), quad.Addr(a))
	t.push(quad.Addr(a), res)

	return nil
}

// Negate applies unary minus to the operand on top.
func (t *Translator) Negate() error { return t.unary(quad.Neg) }

// Not applies logical negation to the operand on top.
func (t *Translator) Not() error { return t.unary(quad.Not) }

// BeginIndex starts an indexed access to array name.
func (t *Translator) BeginIndex(name string) error {
	v, ok := t.dir.Lookup(t.scope, name)
	if !ok {
		return t.errorf(diag.ErrDeclaration, "undeclared array %q", name)
	}

	if !v.Array {
		return t.errorf(diag.ErrDeclaration, "%q is not an array", name)
	}

	t.dims = append(t.dims, v)
	t.OpenParen()

	return nil
}

// EndIndex emits the bounds check and the element address computation.
// The pushed operand is indirect: it holds the element address.
func (t *Translator) EndIndex() error {
	idx, it := t.pop()
	if it != types.Int {
		return t.errorf(diag.ErrDeclaration, "array index must be int, got %v", it)
	}

	if err := t.CloseParen(); err != nil {
		return err
	}

	v := t.dims[len(t.dims)-1]
	t.dims = t.dims[:len(t.dims)-1]

	t.emit(quad.Verify, idx, quad.Immediate(v.Lower), quad.Immediate(v.Upper))

	base, err := t.alloc.Constant(memory.IntValue(int(v.Addr)))
	if err != nil {
		return t.at(err)
	}

	a, err := t.temp(types.Int)
	if err != nil {
		return err
	}

	t.emit(quad.Add, idx, quad.Addr(base), quad.Addr(a))
	t.push(quad.Deref(a), v.Type)

	return nil
}

// Assign stores the value on top into the target below it.
// The parser pushes quad.Assign as operator between them.
func (t *Translator) Assign() error {
	if t.topOperator() != quad.Assign {
		return errors.New("line %d: assignment operator expected on stack", t.line)
	}

	t.popOperator()

	v, vt := t.pop()
	target, tt := t.pop()

	if ResultType(tt, vt, quad.Assign) == types.Invalid {
		return t.errorf(diag.ErrType, "cannot assign %v to %v", vt, tt)
	}

	t.emit(quad.Assign, v, quad.NoOperand(), target)

	return nil
}

// Read replaces the prompt on top with a temporary typed like the target
// below it, filled from input at run time.
func (t *Translator) Read() error {
	prompt, _ := t.pop()
	tt := t.typs[len(t.typs)-1]

	a, err := t.temp(tt)
	if err != nil {
		return err
	}

	t.emit(quad.Read, prompt, quad.NoOperand(), quad.Addr(a))
	t.push(quad.Addr(a), tt)

	return nil
}

func (t *Translator) Print() error {
	x, _ := t.pop()
	t.emit(quad.Print, x, quad.NoOperand(), quad.NoOperand())

	return nil
}

// condition emits GOTOF on the bool on top and pushes it as pending.
func (t *Translator) condition(what string) error {
	c, ct := t.pop()
	if ct != types.Bool {
		return t.errorf(diag.ErrType, "%s condition must be bool, got %v", what, ct)
	}

	j := t.emit(quad.GotoF, c, quad.NoOperand(), quad.Unresolved())
	t.jumps = append(t.jumps, j)

	return nil
}

func (t *Translator) If() error { return t.condition("if") }

// Else jumps over the else body and resolves the pending GOTOF to it.
func (t *Translator) Else() error {
	g := t.emit(quad.Goto, quad.NoOperand(), quad.NoOperand(), quad.Unresolved())

	f := t.popJump()
	if err := t.backpatch(f, t.quads.Next()); err != nil {
		return err
	}

	t.jumps = append(t.jumps, g)

	return nil
}

func (t *Translator) EndIf() error {
	return t.backpatch(t.popJump(), t.quads.Next())
}

// BeginWhile remembers where the loop test starts.
func (t *Translator) BeginWhile() {
	t.jumps = append(t.jumps, t.quads.Next())
}

func (t *Translator) WhileCondition() error { return t.condition("while") }

func (t *Translator) EndWhile() error {
	f := t.popJump()
	start := t.popJump()

	t.emit(quad.Goto, quad.NoOperand(), quad.NoOperand(), quad.Target(start))

	return t.backpatch(f, t.quads.Next())
}

// BeginCall emits ERA for callee name and opens an argument list.
func (t *Translator) BeginCall(name string) error {
	f, ok := t.dir.Function(name)
	if !ok || name == t.name || name == MainName {
		return t.errorf(diag.ErrDeclaration, "undeclared function %q", name)
	}

	t.emit(quad.Era, quad.FuncRef(f.ID), quad.NoOperand(), quad.NoOperand())
	t.calls = append(t.calls, callCursor{fn: f})
	t.OpenParen()

	return nil
}

// Argument binds the value on top to the next parameter of the innermost call.
func (t *Translator) Argument() error {
	c := &t.calls[len(t.calls)-1]
	v, vt := t.pop()

	if c.next >= len(c.fn.Params) {
		return t.errorf(diag.ErrArity, "too many arguments in call to %q: want %d", c.fn.Name, len(c.fn.Params))
	}

	p := c.fn.Params[c.next]
	if ResultType(p.Type, vt, quad.Assign) == types.Invalid {
		return t.errorf(diag.ErrType, "argument %d of %q: cannot use %v as %v", c.next+1, c.fn.Name, vt, p.Type)
	}

	t.emit(quad.Param, v, quad.Immediate(c.next), quad.Addr(p.Addr))
	c.next++

	return nil
}

// EndCall closes the argument list and emits GOSUB.
func (t *Translator) EndCall() error {
	c := t.calls[len(t.calls)-1]
	t.calls = t.calls[:len(t.calls)-1]

	if err := t.CloseParen(); err != nil {
		return err
	}

	if c.next < len(c.fn.Params) {
		return t.errorf(diag.ErrArity, "not enough arguments in call to %q: have %d, want %d", c.fn.Name, c.next, len(c.fn.Params))
	}

	t.emit(quad.Gosub, quad.FuncRef(c.fn.ID), quad.NoOperand(), quad.Target(c.fn.Entry))
	t.lastCall = c.fn

	return nil
}

// CallValue copies the result of the call just closed into a temporary.
func (t *Translator) CallValue() error {
	f := t.lastCall

	if f.Return == types.Void {
		return t.errorf(diag.ErrArity, "void function %q used as a value", f.Name)
	}

	a, err := t.temp(f.Return)
	if err != nil {
		return err
	}

	t.emit(quad.Assign, quad.Addr(f.ReturnAddr), quad.NoOperand(), quad.Addr(a))
	t.push(quad.Addr(a), f.Return)

	return nil
}

// CallStatement checks the call just closed may discard its result.
func (t *Translator) CallStatement() error {
	f := t.lastCall

	if f.Return != types.Void {
		return t.errorf(diag.ErrArity, "result of %v function %q is not used", f.Return, f.Name)
	}

	return nil
}

// Return writes the value on top into the function's return slot and
// leaves a jump to the closing ENDPROC.
func (t *Translator) Return() error {
	f := t.current()

	if f.Return == types.Void {
		return t.errorf(diag.ErrReturnContract, "void function %q cannot return a value", f.Name)
	}

	v, vt := t.pop()
	if ResultType(f.Return, vt, quad.Assign) == types.Invalid {
		return t.errorf(diag.ErrType, "cannot return %v from %v function %q", vt, f.Return, f.Name)
	}

	t.emit(quad.Return, v, quad.NoOperand(), quad.Addr(f.ReturnAddr))

	j := t.emit(quad.Goto, quad.NoOperand(), quad.NoOperand(), quad.Unresolved())
	t.returns = append(t.returns, j)
	t.returned = true

	return nil
}

// Draw emits a drawing quadruple taking its argc arguments from the stack.
func (t *Translator) Draw(op quad.Opcode, argc int) error {
	if !op.IsDrawing() {
		return errors.New("line %d: %v is not a drawing operation", t.line, op)
	}

	if argc != op.DrawArity() {
		return t.errorf(diag.ErrArity, "%v takes %d arguments, got %d", op, op.DrawArity(), argc)
	}

	args := [2]quad.Operand{}

	for i := argc - 1; i >= 0; i-- {
		x, xt := t.pop()

		switch {
		case op.TakesColor() && xt != types.String:
			return t.errorf(diag.ErrType, "%v color must be a string, got %v", op, xt)
		case !op.TakesColor() && !xt.Numeric():
			return t.errorf(diag.ErrType, "%v argument must be numeric, got %v", op, xt)
		}

		args[i] = x
	}

	t.emit(op, args[0], args[1], quad.NoOperand())

	return nil
}
