package turtle

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

var white = color.RGBA{0xff, 0xff, 0xff, 0xff}

func newTurtle(t *testing.T, size int) *Canvas {
	t.Helper()

	c := New(size, size)
	require.NoError(t, c.CreateTurtle())

	return c
}

func TestNeedsTurtle(t *testing.T) {
	c := New(16, 16)

	assert.True(t, errors.Is(c.MoveForward(1), ErrNoTurtle))
	assert.True(t, errors.Is(c.PenUp(), ErrNoTurtle))
	assert.True(t, errors.Is(c.PenColor("red"), ErrNoTurtle))

	require.NoError(t, c.CreateTurtle())
	assert.NoError(t, c.MoveForward(1))
	assert.Equal(t, 2, c.Ops())
}

func TestNewCanvasIsWhite(t *testing.T) {
	c := New(8, 4)

	w, h := c.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)
	assert.Len(t, c.RGBA(), 8*4*4)
	assert.Equal(t, white, c.Image().RGBAAt(3, 2))
}

func TestMovement(t *testing.T) {
	c := newTurtle(t, 64)

	require.NoError(t, c.MoveForward(10))
	x, y := c.Position()
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	require.NoError(t, c.TurnLeft(90))
	assert.InDelta(t, 90, c.Heading(), 1e-9)

	require.NoError(t, c.MoveForward(5))
	x, y = c.Position()
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, 5, y, 1e-9)

	require.NoError(t, c.MoveRight(3))
	x, y = c.Position()
	assert.InDelta(t, 13, x, 1e-9)
	assert.InDelta(t, 5, y, 1e-9)
	assert.InDelta(t, 0, c.Heading(), 1e-9)

	require.NoError(t, c.MoveLeft(2))
	x, y = c.Position()
	assert.InDelta(t, 13, x, 1e-9)
	assert.InDelta(t, 7, y, 1e-9)

	require.NoError(t, c.TurnRight(450))
	assert.InDelta(t, 0, c.Heading(), 1e-9)

	require.NoError(t, c.SetPosition(-4, 3))
	x, y = c.Position()
	assert.Equal(t, -4.0, x)
	assert.Equal(t, 3.0, y)
}

func TestShapesReturnHome(t *testing.T) {
	for name, draw := range map[string]func(c *Canvas) error{
		"square":    func(c *Canvas) error { return c.DrawSquare(20) },
		"triangle":  func(c *Canvas) error { return c.DrawTriangle(20) },
		"rectangle": func(c *Canvas) error { return c.DrawRectangle(20, 10) },
		"circle":    func(c *Canvas) error { return c.DrawCircle(15) },
		"clockwise": func(c *Canvas) error { return c.DrawCircle(-15) },
	} {
		c := newTurtle(t, 64)

		require.NoError(t, c.TurnLeft(30))
		require.NoError(t, draw(c), name)

		x, y := c.Position()
		assert.InDelta(t, 0, x, 1e-6, name)
		assert.InDelta(t, 0, y, 1e-6, name)
		assert.InDelta(t, 30, c.Heading(), 1e-6, name)
	}
}

func TestPenDrawsPixels(t *testing.T) {
	c := newTurtle(t, 64)

	require.NoError(t, c.PenColor("red"))
	require.NoError(t, c.PenWidth(3))
	require.NoError(t, c.MoveForward(20))

	// origin is the centre; y grows upwards
	assert.Equal(t, color.RGBA{0xff, 0, 0, 0xff}, c.Image().RGBAAt(42, 32))
	assert.Equal(t, white, c.Image().RGBAAt(42, 20))

	require.NoError(t, c.PenUp())
	require.NoError(t, c.SetPosition(0, 20))
	assert.Equal(t, white, c.Image().RGBAAt(41, 21), "pen up does not draw")

	require.NoError(t, c.PenDown())
	require.NoError(t, c.SetPosition(0, 10))
	assert.Equal(t, color.RGBA{0xff, 0, 0, 0xff}, c.Image().RGBAAt(32, 17))
}

func TestFill(t *testing.T) {
	c := newTurtle(t, 64)

	require.NoError(t, c.FillColor("#0000ff"))
	require.NoError(t, c.PenWidth(2))
	require.NoError(t, c.BeginFill())
	require.NoError(t, c.DrawSquare(20))
	require.NoError(t, c.EndFill())

	// inside the square, above and right of the start
	assert.Equal(t, color.RGBA{0, 0, 0xff, 0xff}, c.Image().RGBAAt(42, 22))
	// outline stays in pen color
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, c.Image().RGBAAt(42, 32))
	assert.Equal(t, white, c.Image().RGBAAt(20, 40))

	assert.NoError(t, c.EndFill(), "end_fill without begin_fill")
}

func TestResetAndCreate(t *testing.T) {
	c := newTurtle(t, 32)

	require.NoError(t, c.PenWidth(4))
	require.NoError(t, c.MoveForward(10))
	require.NotEqual(t, white, c.Image().RGBAAt(20, 16))

	require.NoError(t, c.CreateTurtle())
	assert.NotEqual(t, white, c.Image().RGBAAt(20, 16), "create_turtle keeps the drawing")

	x, _ := c.Position()
	assert.Equal(t, 0.0, x)

	require.NoError(t, c.Reset())
	assert.Equal(t, white, c.Image().RGBAAt(20, 16))
}

func TestPenSettings(t *testing.T) {
	c := newTurtle(t, 16)

	assert.Error(t, c.PenWidth(0))
	assert.Error(t, c.PenColor("no-such-color"))

	assert.Equal(t, 3.0, c.Speed())
	require.NoError(t, c.SetSpeed(20))
	assert.Equal(t, 10.0, c.Speed())
	require.NoError(t, c.SetSpeed(-1))
	assert.Equal(t, 0.0, c.Speed())

	require.NoError(t, c.FinishDrawing())
	assert.True(t, c.Finished)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		err  bool
	}{
		{"red", color.RGBA{0xff, 0, 0, 0xff}, false},
		{" SteelBlue ", color.RGBA{0x46, 0x82, 0xb4, 0xff}, false},
		{"#102030", color.RGBA{0x10, 0x20, 0x30, 0xff}, false},
		{"#12345", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tc := range tests {
		got, err := ParseColor(tc.in)
		if tc.err {
			assert.Error(t, err, tc.in)
			continue
		}

		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestSaveScreenshot(t *testing.T) {
	c := newTurtle(t, 16)
	require.NoError(t, c.MoveForward(4))

	file := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, c.SaveScreenshot(file))

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(b[:4]))
}
