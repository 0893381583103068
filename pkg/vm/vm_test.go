package vm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"gomojo/pkg/compiler"
	"gomojo/pkg/diag"
	"gomojo/pkg/memory"
	"gomojo/pkg/quad"
	"gomojo/pkg/turtle"
)

var _ Sink = (*turtle.Canvas)(nil)

type result struct {
	out string
	rec *Recorder
	vm  *VM
	err error
}

func run(t *testing.T, src, input string) result {
	t.Helper()

	p, err := compiler.Compile(context.Background(), "test.mojo", src)
	require.NoError(t, err)

	var out bytes.Buffer
	rec := &Recorder{}

	m := New(p)
	m.Output = &out
	m.Input = strings.NewReader(input)
	m.Sink = rec
	m.MaxSteps = 100000

	err = m.Run(context.Background())

	return result{out: out.String(), rec: rec, vm: m, err: err}
}

func output(t *testing.T, src string) string {
	t.Helper()

	r := run(t, src, "")
	require.NoError(t, r.err)

	return r.out
}

func TestPrecedenceAndAssociativity(t *testing.T) {
	assert.Equal(t, "14\n", output(t, `program p; main { print(2 + 3 * 4); }`))
	assert.Equal(t, "5\n", output(t, `program p; main { print(10 - 3 - 2); }`))
	assert.Equal(t, "20\n", output(t, `program p; main { print((2 + 3) * 4); }`))
	assert.Equal(t, "1\n", output(t, `program p; main { print(12 / 3 / 4); }`))
	assert.Equal(t, "-10\n", output(t, `program p; main { print(-(2 + 3) * 2); }`))
}

func TestIfElseBranches(t *testing.T) {
	src := `program p;
var x: int;
main {
	x = %s;
	if (x > 0) {
		print(1);
	} else {
		print(2);
	}
}`

	assert.Equal(t, "2\n", output(t, strings.Replace(src, "%s", "-1", 1)))
	assert.Equal(t, "1\n", output(t, strings.Replace(src, "%s", "5", 1)))
}

func TestWhileRunsExactly(t *testing.T) {
	r := run(t, `program p;
var n, times: int;
main {
	n = 3;
	times = 0;
	while (n > 0) {
		n = n - 1;
		times = times + 1;
	}
	print(times);
	print(n);
}`, "")

	require.NoError(t, r.err)
	assert.Equal(t, "3\n0\n", r.out)

	vars := r.vm.Snapshot().Variables
	assert.Equal(t, memory.IntValue(0), vars["n"])
	assert.Equal(t, memory.IntValue(3), vars["times"])
}

func TestArrayBounds(t *testing.T) {
	src := `program p;
var xs[5]: int;
main {
	xs[%s] = 9;
	print(xs[4]);
}`

	assert.Equal(t, "9\n", output(t, strings.Replace(src, "%s", "4", 1)))

	r := run(t, strings.Replace(src, "%s", "5", 1), "")
	require.Error(t, r.err)
	assert.True(t, errors.Is(r.err, diag.ErrBounds), "%v", r.err)
	assert.Empty(t, r.out)
	assert.True(t, r.vm.Halted)
	assert.Equal(t, r.err, r.vm.Err)

	var e *diag.Error
	require.True(t, errors.As(r.err, &e))
	assert.Equal(t, quad.Verify, r.vm.prog.Quads[e.Quad].Op)

	r = run(t, `program p; var xs[2]: int; var i: int; main { i = 0 - 1; print(xs[i]); }`, "")
	assert.True(t, errors.Is(r.err, diag.ErrBounds), "%v", r.err)
}

func TestArrayFill(t *testing.T) {
	assert.Equal(t, "16\n0\n", output(t, `program p;
var xs[5]: int;
var i: int;
main {
	i = 0;
	while (i < 5) {
		xs[i] = i * i;
		i = i + 1;
	}
	print(xs[4]);
	print(xs[xs[0]]);
}`))
}

func TestLocalArray(t *testing.T) {
	assert.Equal(t, "33\n", output(t, `program p;
def int sum(int n) {
	var ys[3]: int;
	var k, s: int;
	k = 0;
	s = 0;
	while (k < 3) {
		ys[k] = n + k;
		k = k + 1;
	}
	k = 0;
	while (k < 3) {
		s = s + ys[k];
		k = k + 1;
	}
	return s;
}
main {
	print(sum(10));
}`))
}

func TestCallRoundTrip(t *testing.T) {
	r := run(t, `program p;
def int add(int a, int b) {
	return a + b;
}
main {
	print(add(3, 4));
	print(add(add(1, 2), add(3, 4)));
}`, "")

	require.NoError(t, r.err)
	assert.Equal(t, "7\n10\n", r.out)
	assert.Equal(t, 1, r.vm.Depth())
}

func TestRecursion(t *testing.T) {
	assert.Equal(t, "120\n55\n", output(t, `program p;
def int fact(int n) {
	if (n <= 1) {
		return 1;
	}
	return n * fact(n - 1);
}
def int fib(int n) {
	if (n < 2) {
		return n;
	}
	return fib(n - 1) + fib(n - 2);
}
main {
	print(fact(5));
	print(fib(10));
}`))
}

func TestReturnLeavesFunction(t *testing.T) {
	assert.Equal(t, "first\n1\n", output(t, `program p;
def int f() {
	print("first");
	return 1;
	print("never");
	return 2;
}
main {
	print(f());
}`))
}

func TestVoidFunctionAndGlobals(t *testing.T) {
	assert.Equal(t, "2\n1\n3\n", output(t, `program p;
var x, calls: int;
def void f() {
	var x: int;
	x = 2;
	calls = calls + 3;
	print(x);
}
main {
	x = 1;
	f();
	print(x);
	print(calls);
}`))
}

func TestParameterWidening(t *testing.T) {
	assert.Equal(t, "2.5\n", output(t, `program p;
def float half(float v) {
	return v / 2;
}
main {
	print(half(5));
}`))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"7 / 2", "3"},
		{"-7 / 2", "-3"},
		{"7.0 / 2", "3.5"},
		{"1.0 + 1", "2.0"},
		{"0.1 + 0.2", "0.30000000000000004"},
		{`"ab" + "cd"`, "abcd"},
		{"1 < 2", "True"},
		{"2 <= 1", "False"},
		{"1 == 1.0", "True"},
		{`"a" != "b"`, "True"},
		{"not (1 > 2) and True", "True"},
		{"False or 1 >= 1", "True"},
		{"True and False or True", "True"},
		{"not True", "False"},
	}

	for _, tc := range tests {
		out := output(t, "program p; main { print("+tc.expr+"); }")
		assert.Equal(t, tc.want+"\n", out, tc.expr)
	}
}

func TestFloatVariable(t *testing.T) {
	assert.Equal(t, "3.0\n", output(t, `program p; var f: float; main { f = 3; print(f); }`))
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{
		`program p; var z: int; main { print(1 / z); }`,
		`program p; var z: float; main { print(1.5 / z); }`,
	} {
		r := run(t, src, "")
		require.Error(t, r.err)
		assert.True(t, errors.Is(r.err, diag.ErrRuntime))
		assert.Contains(t, r.err.Error(), "division by zero")
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		decl  string
		input string
		out   string
		err   bool
	}{
		{"int", "41\n", "? 42\n", false},
		{"int", "41", "? 42\n", false},
		{"float", "1.5\n", "? 2.5\n", false},
		{"int", "abc\n", "? ", true},
		{"int", "", "? ", true},
	}

	for _, tc := range tests {
		r := run(t, `program p;
var n: `+tc.decl+`;
main {
	n = read("? ");
	print(n + 1);
}`, tc.input)

		assert.Equal(t, tc.out, r.out, "%q", tc.input)

		if tc.err {
			assert.True(t, errors.Is(r.err, diag.ErrRuntime), "%q: %v", tc.input, r.err)
			continue
		}

		assert.NoError(t, r.err)
	}
}

func TestReadStringAndBool(t *testing.T) {
	r := run(t, `program p;
var s: string;
var b: bool;
main {
	s = read("name: ");
	b = read("ok: ");
	print(s);
	print(not b);
}`, "hello world\ntrue\n")

	require.NoError(t, r.err)
	assert.Equal(t, "name: ok: hello world\nFalse\n", r.out)
}

func TestDrawingReachesSink(t *testing.T) {
	r := run(t, `program p;
var w: int;
main {
	w = 10;
	create_turtle();
	pen_color("red");
	pen_width(2);
	draw_rectangle(w, 20.5);
	set_position(-5, 5);
	finish_drawing();
}`, "")

	require.NoError(t, r.err)

	assert.Equal(t, []Call{
		{Op: quad.CreateTurtle},
		{Op: quad.PenColor, Args: []any{"red"}},
		{Op: quad.PenWidth, Args: []any{2.0}},
		{Op: quad.DrawRectangle, Args: []any{10.0, 20.5}},
		{Op: quad.SetPosition, Args: []any{-5.0, 5.0}},
		{Op: quad.FinishDrawing},
	}, r.rec.Calls)
}

func TestDrawingWithCanvas(t *testing.T) {
	p, err := compiler.Compile(context.Background(), "test.mojo", `program p;
main {
	move_forward(10);
}`)
	require.NoError(t, err)

	m := New(p)
	m.Output = &bytes.Buffer{}
	m.Sink = turtle.New(32, 32)

	err = m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrRuntime))
	assert.Contains(t, err.Error(), "move_forward")
}

func TestStepLimit(t *testing.T) {
	p, err := compiler.Compile(context.Background(), "test.mojo", `program p; main { while (True) { } }`)
	require.NoError(t, err)

	m := New(p)
	m.MaxSteps = 1000

	err = m.Run(context.Background())
	assert.True(t, errors.Is(err, diag.ErrResource), "%v", err)
	assert.Equal(t, 1000, m.Steps)
}

func TestRunCanceled(t *testing.T) {
	p, err := compiler.Compile(context.Background(), "test.mojo", `program p; main { while (True) { } }`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = New(p).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStepByStep(t *testing.T) {
	p, err := compiler.Compile(context.Background(), "test.mojo", `program p; var x: int; main { x = 1; x = x + 1; }`)
	require.NoError(t, err)

	m := New(p)

	for !m.Halted {
		require.NoError(t, m.Step())
	}

	assert.Equal(t, len(p.Quads), m.IP)
	assert.Equal(t, len(p.Quads), m.Steps)
	assert.Equal(t, memory.IntValue(2), m.Snapshot().Variables["x"])
	assert.NoError(t, m.Step(), "stepping a halted machine is a no-op")
}

func TestSnapshotJSON(t *testing.T) {
	r := run(t, `program p;
var x: int;
var s: string;
main {
	x = 3;
	s = "hi";
}`, "")
	require.NoError(t, r.err)

	var buf bytes.Buffer
	require.NoError(t, r.vm.WriteSnapshot(&buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "p", got["program"])
	assert.Equal(t, true, got["halted"])
	assert.Equal(t, float64(1), got["depth"])
	assert.Equal(t, map[string]any{"x": "3", "s": `"hi"`}, got["variables"])

	file := t.TempDir() + "/state.json"
	require.NoError(t, r.vm.SaveSnapshot(file))
}
