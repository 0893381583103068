package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"gomojo/pkg/diag"
	"gomojo/pkg/memory"
	"gomojo/pkg/quad"
	"gomojo/pkg/types"
)

func compile(t *testing.T, src string) *Program {
	t.Helper()

	p, err := Compile(context.Background(), "test.mojo", src)
	require.NoError(t, err)

	return p
}

var (
	gInt   = memory.Make(memory.Global, types.Int, 0)
	tInt0  = memory.Make(memory.Temporary, types.Int, 0)
	tInt1  = memory.Make(memory.Temporary, types.Int, 1)
	cInt0  = memory.Make(memory.Constant, types.Int, 0)
	cInt1  = memory.Make(memory.Constant, types.Int, 1)
	cInt2  = memory.Make(memory.Constant, types.Int, 2)
	lInt0  = memory.Make(memory.Local, types.Int, 0)
	lFlt0  = memory.Make(memory.Local, types.Float, 0)
	noArg  = quad.NoOperand()
	direct = quad.Addr
)

func TestPrecedence(t *testing.T) {
	p := compile(t, `program p;
var x: int;
main {
	x = 1 + 2 * 3;
}`)

	assert.Equal(t, []quad.Quadruple{
		{Index: 0, Op: quad.Goto, Left: noArg, Right: noArg, Result: quad.Target(1)},
		{Index: 1, Op: quad.Mul, Left: direct(cInt1), Right: direct(cInt2), Result: direct(tInt0)},
		{Index: 2, Op: quad.Add, Left: direct(cInt0), Right: direct(tInt0), Result: direct(tInt1)},
		{Index: 3, Op: quad.Assign, Left: direct(tInt1), Right: noArg, Result: direct(gInt)},
	}, p.Quads)

	assert.Equal(t, "p", p.Name)
	assert.Equal(t, memory.Counts{1, 0, 0, 0}, p.Globals)
	assert.Equal(t, []int{1, 2, 3}, p.Constants.Ints)
	assert.Equal(t, memory.Counts{2, 0, 0, 0}, p.Main.Temps)
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	p := compile(t, `program p;
var x: int;
main {
	x = (1 + 2) * 3;
}`)

	require.Len(t, p.Quads, 4)
	assert.Equal(t, quad.Add, p.Quads[1].Op)
	assert.Equal(t, quad.Mul, p.Quads[2].Op)
	assert.Equal(t, direct(tInt0), p.Quads[2].Left)
}

func TestWhileLoop(t *testing.T) {
	p := compile(t, `program p;
var i: int;
main {
	i = 0;
	while (i < 3) {
		i = i + 1;
	}
}`)

	require.Len(t, p.Quads, 7)
	assert.Equal(t, quad.Less, p.Quads[2].Op)
	assert.Equal(t, quad.GotoF, p.Quads[3].Op)
	assert.Equal(t, quad.Target(7), p.Quads[3].Result)
	assert.Equal(t, quad.Goto, p.Quads[6].Op)
	assert.Equal(t, quad.Target(2), p.Quads[6].Result)
}

func TestIfElse(t *testing.T) {
	p := compile(t, `program p;
var x: int;
main {
	if (x == 0) {
		x = 1;
	} else {
		x = 2;
	}
	print(x);
}`)

	// 1 == ; 2 GOTOF ; 3 = ; 4 GOTO ; 5 = ; 6 PRINT
	require.Len(t, p.Quads, 7)
	assert.Equal(t, quad.Target(5), p.Quads[2].Result)
	assert.Equal(t, quad.Goto, p.Quads[4].Op)
	assert.Equal(t, quad.Target(6), p.Quads[4].Result)
	assert.Equal(t, quad.Print, p.Quads[6].Op)
}

func TestReturnsJumpToEndProc(t *testing.T) {
	p := compile(t, `program p;
def int sign(int n) {
	if (n < 0) {
		return -1;
	} else {
		if (n == 0) {
			return 0;
		}
	}
	return 1;
}
main {
	print(sign(3));
}`)

	sign, ok := p.Dir.Function("sign")
	require.True(t, ok)
	assert.Equal(t, 1, sign.Entry)

	end := -1
	for _, q := range p.Quads {
		if q.Op == quad.EndProc {
			end = q.Index
		}
	}
	require.NotEqual(t, -1, end)

	returns := 0
	for i, q := range p.Quads {
		if q.Op != quad.Return {
			continue
		}

		returns++

		assert.Equal(t, direct(sign.ReturnAddr), q.Result)
		assert.Equal(t, quad.Goto, p.Quads[i+1].Op)
		assert.Equal(t, quad.Target(end), p.Quads[i+1].Result)
	}

	assert.Equal(t, 3, returns)
	assert.Equal(t, quad.Target(end+1), p.Quads[0].Result)
	assert.Equal(t, end+1, p.Main.Entry)
}

func TestCallProtocol(t *testing.T) {
	p := compile(t, `program p;
def void show(int a, float b) {
	print(a);
	print(b);
}
main {
	show(1, 2);
}`)

	show, ok := p.Dir.Function("show")
	require.True(t, ok)
	assert.Equal(t, 1, show.ID)

	assert.Equal(t, quad.Target(4), p.Quads[0].Result)
	assert.Equal(t, quad.EndProc, p.Quads[3].Op)

	assert.Equal(t, []quad.Quadruple{
		{Index: 4, Op: quad.Era, Left: quad.FuncRef(1), Right: noArg, Result: noArg},
		{Index: 5, Op: quad.Param, Left: direct(cInt0), Right: quad.Immediate(0), Result: direct(lInt0)},
		{Index: 6, Op: quad.Param, Left: direct(cInt1), Right: quad.Immediate(1), Result: direct(lFlt0)},
		{Index: 7, Op: quad.Gosub, Left: quad.FuncRef(1), Right: noArg, Result: quad.Target(1)},
	}, p.Quads[4:])
}

func TestCallResultIsCopied(t *testing.T) {
	p := compile(t, `program p;
var r: int;
def int one() {
	return 1;
}
main {
	r = one() + one();
}`)

	one, _ := p.Dir.Function("one")

	copies := 0
	for _, q := range p.Quads {
		if q.Op == quad.Assign && q.Left == direct(one.ReturnAddr) {
			copies++
			assert.Equal(t, memory.Temporary, q.Result.Address().Class())
		}
	}

	assert.Equal(t, 2, copies)
	assert.Equal(t, memory.Make(memory.Global, types.Int, 1), one.ReturnAddr, "after r")
}

func TestArrayIndexing(t *testing.T) {
	p := compile(t, `program p;
var xs[4]: int;
main {
	xs[2] = 7;
}`)

	base := memory.Make(memory.Global, types.Int, 0)

	require.Len(t, p.Quads, 4)
	assert.Equal(t, quad.Quadruple{Index: 1, Op: quad.Verify, Left: direct(cInt0), Right: quad.Immediate(0), Result: quad.Immediate(4)}, p.Quads[1])
	assert.Equal(t, quad.Quadruple{Index: 2, Op: quad.Add, Left: direct(cInt0), Right: direct(cInt1), Result: direct(tInt0)}, p.Quads[2])
	assert.Equal(t, quad.Quadruple{Index: 3, Op: quad.Assign, Left: direct(cInt2), Right: noArg, Result: quad.Deref(tInt0)}, p.Quads[3])

	assert.Equal(t, []int{2, int(base), 7}, p.Constants.Ints)
	assert.Equal(t, memory.Counts{4, 0, 0, 0}, p.Globals)
}

func TestConstantsAreInterned(t *testing.T) {
	p := compile(t, `program p;
var a, b: int;
var s: string;
main {
	a = 5;
	b = 5 + 5;
	s = "x";
	print("x");
	print(True);
	print(True);
}`)

	assert.Equal(t, []int{5}, p.Constants.Ints)
	assert.Equal(t, []string{"x"}, p.Constants.Strings)
	assert.Equal(t, []bool{true}, p.Constants.Bools)

	p = compile(t, `program p;
var f, g: float;
main {
	f = 3.14;
	g = 3.14 * 2;
}`)

	pi := memory.Make(memory.Constant, types.Float, 0)

	assert.Equal(t, []float64{3.14}, p.Constants.Floats)
	assert.Equal(t, pi, p.Quads[1].Left.Address())
	assert.Equal(t, pi, p.Quads[2].Left.Address())
}

func TestReadTakesTargetType(t *testing.T) {
	p := compile(t, `program p;
var f: float;
main {
	f = read("f? ");
}`)

	require.Len(t, p.Quads, 3)
	assert.Equal(t, quad.Read, p.Quads[1].Op)
	assert.Equal(t, types.Float, p.Quads[1].Result.Address().Type())
	assert.Equal(t, quad.Assign, p.Quads[2].Op)
}

func TestDrawingQuadruples(t *testing.T) {
	p := compile(t, `program p;
main {
	create_turtle();
	pen_color("red");
	set_position(10, -2.5);
}`)

	require.Len(t, p.Quads, 5)
	assert.Equal(t, quad.CreateTurtle, p.Quads[1].Op)
	assert.Equal(t, quad.PenColor, p.Quads[2].Op)
	assert.Equal(t, memory.Make(memory.Constant, types.String, 0), p.Quads[2].Left.Address())
	assert.Equal(t, quad.Neg, p.Quads[3].Op)
	assert.Equal(t, quad.SetPosition, p.Quads[4].Op)
	assert.Equal(t, direct(cInt0), p.Quads[4].Left)
}

func TestSummary(t *testing.T) {
	p := compile(t, `program demo;
def void f() {
	print(1);
}
main {
	f();
}`)

	assert.Equal(t, "demo: 5 quadruples, 1 functions, globals [i0 f0 s0 b0]", p.Summary())
	assert.Contains(t, p.Listing(), "GOSUB")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind error
	}{
		{"undeclared variable", `program p; main { x = 1; }`, diag.ErrDeclaration},
		{"redeclared global", `program p; var x: int; var x: float; main { }`, diag.ErrDeclaration},
		{"redeclared parameter", `program p; def void f(int a) { var a: int; } main { }`, diag.ErrDeclaration},
		{"duplicate function", `program p; def void f() { } def void f() { } main { }`, diag.ErrDeclaration},
		{"float into int", `program p; var x: int; main { x = 1.5; }`, diag.ErrType},
		{"string into int", `program p; var x: int; main { x = "1"; }`, diag.ErrType},
		{"int if condition", `program p; main { if (1) { print(1); } }`, diag.ErrType},
		{"int while condition", `program p; main { while (1 + 1) { } }`, diag.ErrType},
		{"too many arguments", `program p; def void f(int a) { print(a); } main { f(1, 2); }`, diag.ErrArity},
		{"too few arguments", `program p; def void f(int a) { print(a); } main { f(); }`, diag.ErrArity},
		{"argument type", `program p; def void f(int a) { print(a); } main { f("s"); }`, diag.ErrType},
		{"missing return", `program p; def int f() { print(1); } main { }`, diag.ErrReturnContract},
		{"return from void", `program p; def void f() { return 1; } main { }`, diag.ErrReturnContract},
		{"return from main", `program p; main { return 1; }`, diag.ErrReturnContract},
		{"return type", `program p; def int f() { return "a"; } main { }`, diag.ErrType},
		{"void as value", `program p; var x: int; def void f() { print(1); } main { x = f(); }`, diag.ErrArity},
		{"result ignored", `program p; def int f() { return 1; } main { f(); }`, diag.ErrArity},
		{"array without index", `program p; var xs[2]: int; main { print(xs); }`, diag.ErrType},
		{"scalar indexed", `program p; var x: int; main { x[0] = 1; }`, diag.ErrDeclaration},
		{"float index", `program p; var xs[2]: int; main { xs[1.0] = 1; }`, diag.ErrDeclaration},
		{"empty array", `program p; var xs[0]: int; main { }`, diag.ErrDeclaration},
		{"array too large", `program p; var xs[10001]: int; main { }`, diag.ErrResource},
		{"array size overflows", `program p; var x: int; var a[9223372036854775807]: int; main { print(1); }`, diag.ErrResource},
		{"color not string", `program p; main { pen_color(3); }`, diag.ErrType},
		{"distance not numeric", `program p; main { move_forward("far"); }`, diag.ErrType},
		{"rectangle arity", `program p; main { draw_rectangle(1); }`, diag.ErrArity},
		{"create_turtle arity", `program p; main { create_turtle(1); }`, diag.ErrArity},
		{"and on ints", `program p; main { print(1 and 2); }`, diag.ErrType},
		{"not on int", `program p; main { print(not 1); }`, diag.ErrType},
		{"string minus", `program p; main { print("a" - "b"); }`, diag.ErrType},
		{"string less", `program p; main { print("a" < "b"); }`, diag.ErrType},
		{"negate string", `program p; main { print(-"a"); }`, diag.ErrType},
		{"call program scope", `program p; main { p(); }`, diag.ErrDeclaration},
		{"undeclared function", `program p; main { g(); }`, diag.ErrDeclaration},
		{"missing semicolon", `program p; main { print(1) }`, diag.ErrSyntax},
		{"missing main", `program p; var x: int;`, diag.ErrSyntax},
		{"trailing tokens", `program p; main { } x`, diag.ErrSyntax},
		{"lexer error", `program p; main { print(1 # 2); }`, diag.ErrSyntax},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(context.Background(), "test.mojo", tc.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "%v", err)
		})
	}
}

func TestErrorLine(t *testing.T) {
	_, err := Compile(context.Background(), "test.mojo", `program p;
main {
	print(y);
}`)
	require.Error(t, err)

	var e *diag.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Line)
	assert.Contains(t, err.Error(), `line 3: declaration error: undeclared variable "y"`)
}

func TestSyntaxErrorQuotesSource(t *testing.T) {
	_, err := Compile(context.Background(), "test.mojo", `program p;
var x: int;
main {
	x = = 2;
}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrSyntax))
	assert.Contains(t, err.Error(), "|> x = = 2;")
}

func TestParseStopsWhenCanceled(t *testing.T) {
	src := `program p;
def void f() {
	print(1);
}
main {
	f();
}`

	toks, err := Lex(src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Parse(ctx, toks, src)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)

	p, err := Parse(context.Background(), toks, src)
	require.NoError(t, err)
	assert.Equal(t, "p", p.Name)
}
