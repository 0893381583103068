package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goforj/godump"
	"tlog.app/go/tlog"

	"gomojo/pkg/compiler"
)

const testSource = `program demo;
var x, y: int;
main {
	x = 10;
	y = x * 2 + 1;
	print(y);
}
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse and translate
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	p, err := compiler.Parse(ctx, tokens, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile error:", err)
		os.Exit(1)
	}

	fmt.Println("Quadruples")
	fmt.Print(p.Listing())
	fmt.Println()

	fmt.Println("Function directory")
	fmt.Print(p.Dir)
	fmt.Println()

	if len(os.Args) > 2 && os.Args[2] == "--dump" {
		for _, f := range p.Dir.Functions() {
			godump.Dump(f)
		}

		godump.Dump(p.Constants)
	}

	fmt.Println(p.Summary())
}
