package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"tlog.app/go/tlog"

	"gomojo/pkg/compiler"
	"gomojo/pkg/config"
	"gomojo/pkg/quad"
	"gomojo/pkg/turtle"
	"gomojo/pkg/utils"
	"gomojo/pkg/vm"
)

// consoleLines is how many lines of program output are overlaid on the canvas.
const consoleLines = 8

type Game struct {
	prog   *compiler.Program
	vm     *vm.VM
	canvas *turtle.Canvas

	canvasImg *ebiten.Image

	out   bytes.Buffer // everything printed by the program
	in    bytes.Buffer // lines handed to read, one at a time
	typed []rune       // line being typed
	lines []string     // complete lines not yet consumed by read

	reported bool
}

func NewGame(p *compiler.Program, size int) *Game {
	g := &Game{
		prog:   p,
		vm:     vm.New(p),
		canvas: turtle.New(size, size),
	}

	g.vm.Sink = g.canvas
	g.vm.Output = &g.out
	g.vm.Input = &g.in

	return g
}

// stepsPerFrame maps the turtle speed to a quadruple budget. Speed 0 means
// no animation, as fast as possible. Speeds outside [0, 10] fall back to it.
func stepsPerFrame(speed float64) int {
	if speed <= 0 || speed > 10 {
		return 10000
	}

	return 1 << uint(speed)
}

// waiting reports whether the next quadruple is a read with no line typed yet.
func (g *Game) waiting() bool {
	if g.vm.IP < 0 || g.vm.IP >= len(g.prog.Quads) {
		return false
	}

	if g.prog.Quads[g.vm.IP].Op != quad.Read {
		return false
	}

	if len(g.lines) == 0 {
		return true
	}

	g.in.WriteString(g.lines[0] + "\n")
	g.lines = g.lines[1:]

	return false
}

func (g *Game) typeRunes(rs []rune, enter, backspace bool) {
	g.typed = append(g.typed, rs...)

	if backspace && len(g.typed) != 0 {
		g.typed = g.typed[:len(g.typed)-1]
	}

	if enter {
		g.lines = append(g.lines, string(g.typed))
		g.out.WriteString(string(g.typed) + "\n")
		g.typed = g.typed[:0]
	}
}

func (g *Game) Update() error {
	g.typeRunes(ebiten.AppendInputChars(nil),
		inpututil.IsKeyJustPressed(ebiten.KeyEnter),
		inpututil.IsKeyJustPressed(ebiten.KeyBackspace))

	g.step(stepsPerFrame(g.canvas.Speed()))

	return nil
}

func (g *Game) step(budget int) {
	for i := 0; i < budget; i++ {
		if g.vm.Halted || g.canvas.Finished || g.waiting() {
			break
		}

		_ = g.vm.Step()
	}

	if g.vm.Err != nil && !g.reported {
		g.reported = true
		fmt.Fprintf(&g.out, "error: %v\n", g.vm.Err)
		tlog.Printw("run failed", "err", g.vm.Err)
	}
}

// console returns the tail of the program output with the line being typed.
func (g *Game) console() string {
	text := g.out.String() + string(g.typed)

	lines := strings.Split(text, "\n")
	if len(lines) > consoleLines {
		lines = lines[len(lines)-consoleLines:]
	}

	return strings.Join(lines, "\n")
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.canvasImg == nil {
		w, h := g.canvas.Size()
		g.canvasImg = ebiten.NewImage(w, h)
	}

	g.canvasImg.WritePixels(g.canvas.RGBA())
	screen.DrawImage(g.canvasImg, &ebiten.DrawImageOptions{})

	ebitenutil.DebugPrintAt(screen, g.console(), 4, 4)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.canvas.Size()
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s FILE [--quads]", os.Args[0])
	}

	cfg := &config.Config{}
	for _, arg := range os.Args[2:] {
		cfg.SetShowQuads(cfg.ShowQuads() || arg == "--quads")
	}

	fullPath, _, err := utils.SourcePath(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to resolve source file: %v", err)
	}

	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	p, err := compiler.CompileFile(ctx, fullPath)
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}

	if cfg.ShowQuads() {
		fmt.Print(p.Listing())
	}

	size := cfg.CanvasSize()

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(size, size)
	ebiten.SetWindowTitle("mojo: " + p.Name)

	if err := ebiten.RunGame(NewGame(p, size)); err != nil {
		log.Fatal(err)
	}
}
