package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// CompileFile reads and compiles the mojo source file name.
func CompileFile(ctx context.Context, name string) (*Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, string(text))
}

// Compile tokenizes, parses and translates src in one pass.
func Compile(ctx context.Context, name, src string) (p *Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	tokens, err := Lex(src)
	if err != nil {
		return nil, errors.Wrap(err, "lex")
	}

	if tr.If("tokens") {
		for _, tok := range tokens {
			tr.Printw("token", "type", tok.Type, "lexeme", tok.Lexeme, "line", tok.Line)
		}
	}

	p, err = Parse(ctx, tokens, src)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	if tr.If("quads") {
		for _, q := range p.Quads {
			tr.Printw("quad", "i", q.Index, "op", q.Op, "l", q.Left, "r", q.Right, "res", q.Result)
		}
	}

	tr.Printw("compiled", "quads", len(p.Quads), "functions", len(p.Dir.Functions()), "globals", p.Globals)

	return p, nil
}
