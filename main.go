//go:build !js

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"gomojo/pkg/compiler"
	"gomojo/pkg/config"
	"gomojo/pkg/turtle"
	"gomojo/pkg/utils"
	"gomojo/pkg/vm"
)

func main() {
	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and execute a mojo program",
		Action:      runAct,
		Args:        cli.Args{},
		Flags:       runFlags(),
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "compile mojo programs and report errors",
		Action:      checkAct,
		Args:        cli.Args{},
		Flags:       commonFlags(),
	}

	quadsCmd := &cli.Command{
		Name:        "quads",
		Description: "print the quadruples of a mojo program",
		Action:      quadsAct,
		Args:        cli.Args{},
		Flags:       commonFlags(),
	}

	app := &cli.Command{
		Name:        "mojo",
		Description: "mojo is a compiler and virtual machine for the mojo turtle language",
		Action:      interactiveAct,
		Flags:       commonFlags(),
		Commands: []*cli.Command{
			runCmd,
			checkCmd,
			quadsCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func commonFlags() []*cli.Flag {
	return []*cli.Flag{
		cli.NewFlag("verbose,v", "", "log topics to enable (emit, exec, call, quads, tokens, turtle)"),
		cli.HelpFlag,
	}
}

func runFlags() []*cli.Flag {
	return append(commonFlags(),
		cli.NewFlag("quads", false, "print quadruples before running"),
		cli.NewFlag("dir", false, "print the function directory before running"),
		cli.NewFlag("trace", false, "log every executed quadruple"),
		cli.NewFlag("memory", false, "dump machine state after the run"),
		cli.NewFlag("png", "", "save the turtle canvas to this file (auto: next to the source)"),
		cli.NewFlag("size", config.DefaultCanvasSize, "canvas width and height in pixels"),
		cli.NewFlag("max-steps", 0, "stop after this many quadruples (0: no limit)"),
	)
}

func configFrom(c *cli.Command) *config.Config {
	cfg := &config.Config{}

	cfg.SetVerbosity(c.String("verbose"))

	return cfg
}

func setup(cfg *config.Config) context.Context {
	tlog.SetVerbosity(cfg.Verbosity())

	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func runAct(c *cli.Command) (err error) {
	cfg := configFrom(c)
	cfg.SetShowQuads(c.Bool("quads"))
	cfg.SetShowDir(c.Bool("dir"))
	cfg.SetTrace(c.Bool("trace"))
	cfg.SetDumpMemory(c.Bool("memory"))
	cfg.SetPNG(c.String("png"))
	cfg.SetCanvasSize(c.Int("size"))
	cfg.SetMaxSteps(c.Int("max-steps"))

	ctx := setup(cfg)

	if len(c.Args) != 1 {
		return errors.New("usage: mojo run FILE")
	}

	return run(ctx, cfg, c.Args[0], os.Stdin, os.Stdout)
}

func run(ctx context.Context, cfg *config.Config, name string, in io.Reader, out io.Writer) error {
	full, dir, err := utils.SourcePath(name)
	if err != nil {
		return errors.Wrap(err, "resolve %v", name)
	}

	tlog.SpanFromContext(ctx).Printw("source", "path", full, "dir", dir)

	p, err := compiler.CompileFile(ctx, full)
	if err != nil {
		return errors.Wrap(err, "compile %v", name)
	}

	if cfg.ShowQuads() {
		fmt.Fprint(out, p.Listing())
	}

	if cfg.ShowDir() {
		fmt.Fprint(out, p.Dir)
	}

	canvas := turtle.New(cfg.CanvasSize(), cfg.CanvasSize())

	m := vm.New(p)
	m.Input = in
	m.Output = out
	m.Sink = canvas
	m.MaxSteps = cfg.MaxSteps()

	err = m.Run(ctx)

	if cfg.DumpMemory() {
		if e := m.WriteSnapshot(out); e != nil && err == nil {
			err = e
		}
	}

	if err != nil {
		return errors.Wrap(err, "run %v", name)
	}

	if png := cfg.PNG(); png != "" {
		if png == "auto" {
			png = utils.DefaultPNG(full)
		}

		err = canvas.SaveScreenshot(png)
		if err != nil {
			return errors.Wrap(err, "save canvas")
		}
	}

	return nil
}

type checkResult struct {
	name  string
	quads int
	err   error
}

// checkAct compiles every argument concurrently and reports each one in order.
func checkAct(c *cli.Command) (err error) {
	ctx := setup(configFrom(c))

	if len(c.Args) == 0 {
		return errors.New("usage: mojo check FILE...")
	}

	res := make([]checkResult, len(c.Args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, a := range c.Args {
		i, a := i, a

		g.Go(func() error {
			p, err := compiler.CompileFile(gctx, a)

			res[i] = checkResult{name: a, err: err}
			if err == nil {
				res[i].quads = len(p.Quads)
			}

			return nil
		})
	}

	_ = g.Wait()

	failed := 0

	for _, r := range res {
		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", r.name, r.err)

			continue
		}

		fmt.Printf("ok   %s (%d quadruples)\n", r.name, r.quads)
	}

	if failed != 0 {
		return errors.New("%d of %d files failed", failed, len(res))
	}

	return nil
}

func quadsAct(c *cli.Command) (err error) {
	ctx := setup(configFrom(c))

	for _, a := range c.Args {
		p, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		fmt.Print(p.Listing())
	}

	return nil
}

// interactiveAct asks for a file and what to do with it, one question per line.
func interactiveAct(c *cli.Command) (err error) {
	cfg := configFrom(c)
	ctx := setup(cfg)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("no command given and stdin is not a terminal; see mojo --help")
	}

	in := bufio.NewReader(os.Stdin)

	name, err := ask(in, "File name: ")
	if err != nil {
		return err
	}

	cfg.SetShowQuads(yes(ask(in, "Print quadruples? (y/n): ")))

	full, _, err := utils.SourcePath(name)
	if err != nil {
		return errors.Wrap(err, "resolve %v", name)
	}

	p, err := compiler.CompileFile(ctx, full)
	if err != nil {
		return errors.Wrap(err, "compile %v", name)
	}

	if cfg.ShowQuads() {
		fmt.Print(p.Listing())
	}

	if !yes(ask(in, "Execute? (y/n): ")) {
		return nil
	}

	step := yes(ask(in, "Step by step? (y/n): "))

	canvas := turtle.New(cfg.CanvasSize(), cfg.CanvasSize())

	m := vm.New(p)
	m.Input = in
	m.Sink = canvas

	if step {
		err = stepThrough(in, p, m)
	} else {
		err = m.Run(ctx)
	}

	if err != nil {
		return err
	}

	png, err := saveDrawing(canvas, full)
	if err != nil {
		return err
	}

	if png != "" {
		fmt.Printf("canvas saved to %s\n", png)
	}

	return nil
}

// saveDrawing writes the canvas next to source if the program used the
// turtle, and returns the file name.
func saveDrawing(canvas *turtle.Canvas, source string) (string, error) {
	if canvas.Ops() == 0 {
		return "", nil
	}

	png := utils.DefaultPNG(source)

	err := canvas.SaveScreenshot(png)
	if err != nil {
		return "", errors.Wrap(err, "save canvas")
	}

	return png, nil
}

// stepThrough shows each quadruple on stderr and waits for Enter before running it.
func stepThrough(in *bufio.Reader, p *compiler.Program, m *vm.VM) error {
	for !m.Halted {
		if m.IP < len(p.Quads) {
			fmt.Fprintf(os.Stderr, "%v", p.Quads[m.IP])

			if _, err := in.ReadString('\n'); err != nil {
				return errors.Wrap(err, "step")
			}
		}

		if err := m.Step(); err != nil {
			return err
		}
	}

	return nil
}

func ask(in *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "read answer")
	}

	return strings.TrimSpace(line), nil
}

func yes(answer string, err error) bool {
	if err != nil {
		return false
	}

	a := strings.ToLower(answer)

	return a == "y" || a == "yes"
}
