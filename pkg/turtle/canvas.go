// Package turtle renders turtle drawing into an RGBA canvas.
//
// Coordinates follow the classic turtle conventions: the origin is the
// centre of the canvas, y grows upwards, heading 0 points east and left
// turns are counterclockwise.
package turtle

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/vector"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

var ErrNoTurtle = errors.New("no turtle: call create_turtle() first")

// circleSteps is the number of chords a full circle is drawn with.
const circleSteps = 36

type point struct{ x, y float64 }

type segment struct {
	a, b  point
	color color.RGBA
	width float64
}

// Canvas is a turtle together with the image it draws on.
type Canvas struct {
	img *image.RGBA
	r   *vector.Rasterizer
	w   int
	h   int

	created bool
	pos     point
	heading float64 // degrees, counterclockwise from east
	down    bool
	pen     color.RGBA
	fill    color.RGBA
	width   float64
	speed   float64

	filling bool
	poly    []point
	strokes []segment // drawn while filling; redrawn over the fill

	// Finished is set by finish_drawing.
	Finished bool
	ops      int
}

// New creates a w×h white canvas without a turtle.
func New(w, h int) *Canvas {
	c := &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		r:   vector.NewRasterizer(w, h),
		w:   w,
		h:   h,
	}

	c.clear()
	c.home()

	return c
}

func (c *Canvas) clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = 0xff
	}
}

func (c *Canvas) home() {
	c.pos = point{}
	c.heading = 0
	c.down = true
	c.pen = color.RGBA{A: 0xff}
	c.fill = color.RGBA{A: 0xff}
	c.width = 1
	c.speed = 3
	c.filling = false
	c.poly = nil
	c.strokes = nil
}

func (c *Canvas) Image() *image.RGBA { return c.img }

// RGBA returns the pixels in row-major RGBA order.
func (c *Canvas) RGBA() []byte { return c.img.Pix }

func (c *Canvas) Size() (w, h int) { return c.w, c.h }

func (c *Canvas) Position() (x, y float64) { return c.pos.x, c.pos.y }

func (c *Canvas) Heading() float64 { return c.heading }

// Speed is the last value given to set_speed, 3 by default.
func (c *Canvas) Speed() float64 { return c.speed }

// Ops counts drawing operations performed.
func (c *Canvas) Ops() int { return c.ops }

// SaveScreenshot encodes the canvas as a PNG and writes it to filename.
func (c *Canvas) SaveScreenshot(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, c.img)
}

func (c *Canvas) ready() error {
	if !c.created {
		return ErrNoTurtle
	}

	c.ops++

	return nil
}

func (c *Canvas) toPixel(p point) (float32, float32) {
	return float32(float64(c.w)/2 + p.x), float32(float64(c.h)/2 - p.y)
}

// stroke rasterizes the segment a-b as a quad of the given width.
func (c *Canvas) stroke(s segment) {
	ax, ay := c.toPixel(s.a)
	bx, by := c.toPixel(s.b)

	dx, dy := bx-ax, by-ay
	l := float32(math.Hypot(float64(dx), float64(dy)))

	hw := float32(math.Max(s.width, 1) / 2)

	var nx, ny float32
	if l == 0 {
		nx, ny = hw, 0
		ax, bx = ax-hw, bx+hw
	} else {
		nx, ny = -dy/l*hw, dx/l*hw

		// square caps
		ax, ay = ax-dx/l*hw, ay-dy/l*hw
		bx, by = bx+dx/l*hw, by+dy/l*hw
	}

	c.r.Reset(c.w, c.h)
	c.r.MoveTo(ax+nx, ay+ny)
	c.r.LineTo(bx+nx, by+ny)
	c.r.LineTo(bx-nx, by-ny)
	c.r.LineTo(ax-nx, ay-ny)
	c.r.ClosePath()
	c.r.Draw(c.img, c.img.Bounds(), image.NewUniform(s.color), image.Point{})
}

func (c *Canvas) fillPolygon(poly []point, col color.RGBA) {
	if len(poly) < 3 {
		return
	}

	c.r.Reset(c.w, c.h)

	x, y := c.toPixel(poly[0])
	c.r.MoveTo(x, y)

	for _, p := range poly[1:] {
		x, y := c.toPixel(p)
		c.r.LineTo(x, y)
	}

	c.r.ClosePath()
	c.r.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// moveTo moves the turtle, drawing when the pen is down.
func (c *Canvas) moveTo(p point) {
	if c.down {
		s := segment{a: c.pos, b: p, color: c.pen, width: c.width}
		c.stroke(s)

		if c.filling {
			c.strokes = append(c.strokes, s)
		}
	}

	if c.filling {
		c.poly = append(c.poly, p)
	}

	c.pos = p
}

func (c *Canvas) forward(d float64) {
	rad := c.heading * math.Pi / 180

	c.moveTo(point{
		x: c.pos.x + d*math.Cos(rad),
		y: c.pos.y + d*math.Sin(rad),
	})
}

func (c *Canvas) left(deg float64) {
	c.heading = math.Mod(c.heading+deg, 360)
	if c.heading < 0 {
		c.heading += 360
	}
}

func (c *Canvas) CreateTurtle() error {
	c.created = true
	c.ops++
	c.home()

	tlog.V("turtle").Printw("create turtle", "w", c.w, "h", c.h)

	return nil
}

// Reset erases the drawing and puts the turtle back home.
func (c *Canvas) Reset() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.clear()
	c.home()

	return nil
}

func (c *Canvas) FinishDrawing() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.Finished = true

	return nil
}

func (c *Canvas) PenUp() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.down = false

	return nil
}

func (c *Canvas) PenDown() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.down = true

	return nil
}

func (c *Canvas) BeginFill() error {
	if err := c.ready(); err != nil {
		return err
	}

	c.filling = true
	c.poly = []point{c.pos}
	c.strokes = nil

	return nil
}

// EndFill fills the path traced since BeginFill and redraws its outline.
func (c *Canvas) EndFill() error {
	if err := c.ready(); err != nil {
		return err
	}

	if !c.filling {
		return nil
	}

	c.fillPolygon(c.poly, c.fill)

	for _, s := range c.strokes {
		c.stroke(s)
	}

	c.filling = false
	c.poly = nil
	c.strokes = nil

	return nil
}

func (c *Canvas) PenColor(name string) error {
	if err := c.ready(); err != nil {
		return err
	}

	col, err := ParseColor(name)
	if err != nil {
		return err
	}

	c.pen = col

	return nil
}

func (c *Canvas) FillColor(name string) error {
	if err := c.ready(); err != nil {
		return err
	}

	col, err := ParseColor(name)
	if err != nil {
		return err
	}

	c.fill = col

	return nil
}

func (c *Canvas) PenWidth(w float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	if w <= 0 {
		return errors.New("pen width must be positive: %v", w)
	}

	c.width = w

	return nil
}

func (c *Canvas) MoveForward(d float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.forward(d)

	return nil
}

// MoveRight turns right 90 degrees and moves d.
func (c *Canvas) MoveRight(d float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.left(-90)
	c.forward(d)

	return nil
}

// MoveLeft turns left 90 degrees and moves d.
func (c *Canvas) MoveLeft(d float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.left(90)
	c.forward(d)

	return nil
}

func (c *Canvas) TurnRight(deg float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.left(-deg)

	return nil
}

func (c *Canvas) TurnLeft(deg float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.left(deg)

	return nil
}

// polygon walks sides, turning left by the exterior angle after each.
func (c *Canvas) polygon(sides []float64, turn float64) {
	for _, s := range sides {
		c.forward(s)
		c.left(turn)
	}
}

func (c *Canvas) DrawSquare(side float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.polygon([]float64{side, side, side, side}, 90)

	return nil
}

// DrawTriangle draws an equilateral triangle.
func (c *Canvas) DrawTriangle(side float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.polygon([]float64{side, side, side}, 120)

	return nil
}

func (c *Canvas) DrawRectangle(w, h float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.polygon([]float64{w, h, w, h}, 90)

	return nil
}

// DrawCircle draws a circle whose centre is radius units to the left of
// the turtle. A negative radius draws clockwise.
func (c *Canvas) DrawCircle(radius float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	w := 360.0 / circleSteps
	w2 := w / 2
	l := 2 * radius * math.Sin(w2*math.Pi/180)

	if radius < 0 {
		l, w, w2 = -l, -w, -w2
	}

	c.left(w2)

	for i := 0; i < circleSteps; i++ {
		c.forward(l)
		c.left(w)
	}

	c.left(-w2)

	return nil
}

// SetPosition moves the turtle to (x, y) without changing its heading.
func (c *Canvas) SetPosition(x, y float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.moveTo(point{x: x, y: y})

	return nil
}

// SetSpeed stores the animation speed, clamped to [0, 10].
func (c *Canvas) SetSpeed(s float64) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.speed = math.Max(0, math.Min(10, s))

	return nil
}
