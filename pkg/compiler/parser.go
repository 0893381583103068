package compiler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"gomojo/pkg/diag"
	"gomojo/pkg/quad"
	"gomojo/pkg/types"
)

// Parser consumes the flat token slice produced by the Lexer and fires
// Translator events at each reduction point. No tree is built.
//
// Grammar:
//
//	program    = "program" IDENTIFIER ";" vars functions "main" block
//	vars       = ( "var" IDENTIFIER ("," IDENTIFIER)* ":" type ";"
//	             | "var" IDENTIFIER "[" INT_LIT "]" ":" type ";" )*
//	functions  = ( "def" (type | "void") IDENTIFIER "(" params? ")" block )*
//	block      = "{" vars (statement vars)* "}"
//	statement  = assignment | condition | loop | print | return | call ";" | builtin ";"
//	assignment = IDENTIFIER ("[" exp "]")? "=" (super_expr | "read" "(" super_expr ")") ";"
//	super_expr = "not"? expression (("and" | "or") super_expr)?
//	expression = exp (relop exp)?
//	exp        = term (("+" | "-") term)*
//	term       = factor (("*" | "/") factor)*
//	factor     = "(" super_expr ")" | "-" factor | var_const
//	var_const  = IDENTIFIER ("[" exp "]")? | call | INT_LIT | FLOAT_LIT | STRING_LIT | "True" | "False"
type Parser struct {
	ctx context.Context

	tokens      []Token
	pos         int
	sourceLines []string

	t *Translator
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{
		ctx:         context.Background(),
		tokens:      tokens,
		sourceLines: strings.Split(rawSource, "\n"),
		t:           NewTranslator(),
	}
}

// Parse parses a whole program and returns its translation.
// Cancellation is checked between function definitions.
func Parse(ctx context.Context, tokens []Token, src string) (prog *Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "tokens", len(tokens))
	defer tr.Finish("err", &err)

	p := NewParser(tokens, src)
	p.ctx = ctx

	return p.parseProgram()
}

// fmtError builds a syntax error quoting the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return diag.New(diag.ErrSyntax, tok.Line, "%s\n  |> %s", msg, snippet)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekNext returns the token immediately after the current one.
func (p *Parser) peekNext() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+1]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	p.t.SetLine(tok.Line)
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

func (p *Parser) parseProgram() (*Program, error) {
	if _, err := p.expect(PROGRAM); err != nil {
		return nil, err
	}

	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	if err := p.t.StartProgram(name.Lexeme); err != nil {
		return nil, err
	}

	if err := p.parseVars(); err != nil {
		return nil, err
	}

	for p.peek().Type == DEF {
		if err := p.ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "function at line %d", p.peek().Line)
		}

		if err := p.parseFunction(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(MAIN); err != nil {
		return nil, err
	}

	if err := p.t.StartMain(); err != nil {
		return nil, err
	}

	if err := p.parseBlock(); err != nil {
		return nil, err
	}

	if _, err := p.expect(EOF); err != nil {
		return nil, err
	}

	return p.t.FinishProgram()
}

func (p *Parser) parseType() (types.Type, error) {
	tok := p.advance()

	switch tok.Type {
	case INT, FLOAT, STRING, BOOL:
		t, _ := types.Parse(tok.Lexeme)
		return t, nil
	}

	return types.Invalid, p.fmtError(tok, "expected a type, got %s (%q)", tok.Type, tok.Lexeme)
}

// parseVars handles any number of var declarations.
func (p *Parser) parseVars() error {
	for p.peek().Type == VAR {
		p.advance()

		first, err := p.expect(IDENTIFIER)
		if err != nil {
			return err
		}

		if p.peek().Type == LBRACKET {
			if err := p.parseArrayDecl(first); err != nil {
				return err
			}

			continue
		}

		names := []string{first.Lexeme}

		for p.peek().Type == COMMA {
			p.advance()

			tok, err := p.expect(IDENTIFIER)
			if err != nil {
				return err
			}

			names = append(names, tok.Lexeme)
		}

		if _, err := p.expect(COLON); err != nil {
			return err
		}

		t, err := p.parseType()
		if err != nil {
			return err
		}

		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}

		if err := p.t.DeclareVariables(names, t); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseArrayDecl(name Token) error {
	p.advance() // [

	sizeTok, err := p.expect(INT_LIT)
	if err != nil {
		return err
	}

	size, err := strconv.Atoi(sizeTok.Lexeme)
	if err != nil {
		return p.fmtError(sizeTok, "bad array size %q", sizeTok.Lexeme)
	}

	if _, err := p.expect(RBRACKET); err != nil {
		return err
	}

	if _, err := p.expect(COLON); err != nil {
		return err
	}

	t, err := p.parseType()
	if err != nil {
		return err
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	return p.t.DeclareArray(name.Lexeme, size, t)
}

func (p *Parser) parseFunction() error {
	p.advance() // def

	ret := types.Void
	if p.peek().Type == VOID {
		p.advance()
	} else {
		t, err := p.parseType()
		if err != nil {
			return err
		}

		ret = t
	}

	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return err
	}

	if _, err := p.expect(LPAREN); err != nil {
		return err
	}

	var ptypes []types.Type
	var pnames []string

	for p.peek().Type != RPAREN {
		if len(ptypes) != 0 {
			if _, err := p.expect(COMMA); err != nil {
				return err
			}
		}

		t, err := p.parseType()
		if err != nil {
			return err
		}

		tok, err := p.expect(IDENTIFIER)
		if err != nil {
			return err
		}

		ptypes = append(ptypes, t)
		pnames = append(pnames, tok.Lexeme)
	}

	p.advance() // )

	if err := p.t.StartFunction(name.Lexeme, ret, ptypes, pnames); err != nil {
		return err
	}

	if err := p.parseBlock(); err != nil {
		return err
	}

	return p.t.EndFunction()
}

func (p *Parser) parseBlock() error {
	if _, err := p.expect(LBRACE); err != nil {
		return err
	}

	if err := p.parseVars(); err != nil {
		return err
	}

	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		if err := p.parseStatement(); err != nil {
			return err
		}

		if err := p.parseVars(); err != nil {
			return err
		}
	}

	_, err := p.expect(RBRACE)

	return err
}

func (p *Parser) parseStatement() error {
	tok := p.peek()

	switch tok.Type {
	case IF:
		return p.parseCondition()
	case WHILE:
		return p.parseLoop()
	case PRINT:
		return p.parsePrint()
	case RETURN:
		p.advance()

		if err := p.parseSuperExpr(); err != nil {
			return err
		}

		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}

		return p.t.Return()
	case BUILTIN:
		return p.parseBuiltin()
	case IDENTIFIER:
		if p.peekNext().Type != LPAREN {
			return p.parseAssignment()
		}

		if err := p.parseCall(); err != nil {
			return err
		}

		if err := p.t.CallStatement(); err != nil {
			return err
		}

		_, err := p.expect(SEMICOLON)

		return err
	}

	return p.fmtError(tok, "unexpected %s (%q) at start of statement", tok.Type, tok.Lexeme)
}

func (p *Parser) parsePrint() error {
	p.advance() // print

	if _, err := p.expect(LPAREN); err != nil {
		return err
	}

	if err := p.parseSuperExpr(); err != nil {
		return err
	}

	if _, err := p.expect(RPAREN); err != nil {
		return err
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	return p.t.Print()
}

func (p *Parser) parseAssignment() error {
	name := p.advance()

	if p.peek().Type == LBRACKET {
		if err := p.parseIndex(name); err != nil {
			return err
		}
	} else if err := p.t.PushVariable(name.Lexeme); err != nil {
		return err
	}

	if _, err := p.expect(ASSIGN); err != nil {
		return err
	}

	p.t.PushOperator(quad.Assign)

	if p.peek().Type == READ {
		p.advance()

		if _, err := p.expect(LPAREN); err != nil {
			return err
		}

		if err := p.parseSuperExpr(); err != nil {
			return err
		}

		if _, err := p.expect(RPAREN); err != nil {
			return err
		}

		if err := p.t.Read(); err != nil {
			return err
		}
	} else if err := p.parseSuperExpr(); err != nil {
		return err
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	return p.t.Assign()
}

// parseIndex handles "[" exp "]" after an array name.
func (p *Parser) parseIndex(name Token) error {
	if err := p.t.BeginIndex(name.Lexeme); err != nil {
		return err
	}

	p.advance() // [

	if err := p.parseExp(); err != nil {
		return err
	}

	if _, err := p.expect(RBRACKET); err != nil {
		return err
	}

	return p.t.EndIndex()
}

func (p *Parser) parseCondition() error {
	p.advance() // if

	if err := p.parseParenCondition(); err != nil {
		return err
	}

	if err := p.t.If(); err != nil {
		return err
	}

	if err := p.parseBlock(); err != nil {
		return err
	}

	if p.peek().Type == ELSE {
		p.advance()

		if err := p.t.Else(); err != nil {
			return err
		}

		if err := p.parseBlock(); err != nil {
			return err
		}
	}

	return p.t.EndIf()
}

func (p *Parser) parseLoop() error {
	p.advance() // while

	p.t.BeginWhile()

	if err := p.parseParenCondition(); err != nil {
		return err
	}

	if err := p.t.WhileCondition(); err != nil {
		return err
	}

	if err := p.parseBlock(); err != nil {
		return err
	}

	return p.t.EndWhile()
}

func (p *Parser) parseParenCondition() error {
	if _, err := p.expect(LPAREN); err != nil {
		return err
	}

	if err := p.parseSuperExpr(); err != nil {
		return err
	}

	_, err := p.expect(RPAREN)

	return err
}

// parseCall handles IDENTIFIER "(" args ")" and leaves the result, if any,
// for CallValue or CallStatement to consume.
func (p *Parser) parseCall() error {
	name := p.advance()

	if err := p.t.BeginCall(name.Lexeme); err != nil {
		return err
	}

	p.advance() // (

	for i := 0; p.peek().Type != RPAREN; i++ {
		if i != 0 {
			if _, err := p.expect(COMMA); err != nil {
				return err
			}
		}

		if err := p.parseSuperExpr(); err != nil {
			return err
		}

		if err := p.t.Argument(); err != nil {
			return err
		}
	}

	p.advance() // )

	return p.t.EndCall()
}

func (p *Parser) parseBuiltin() error {
	tok := p.advance()
	op := builtins[tok.Lexeme]

	if _, err := p.expect(LPAREN); err != nil {
		return err
	}

	argc := 0

	for p.peek().Type != RPAREN {
		if argc != 0 {
			if _, err := p.expect(COMMA); err != nil {
				return err
			}
		}

		if err := p.parseSuperExpr(); err != nil {
			return err
		}

		argc++
	}

	p.advance() // )

	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	return p.t.Draw(op, argc)
}

// parseSuperExpr handles "not"? expression (("and" | "or") super_expr)?
func (p *Parser) parseSuperExpr() error {
	negate := false
	if p.peek().Type == NOT {
		p.advance()
		negate = true
	}

	if err := p.parseExpression(); err != nil {
		return err
	}

	if negate {
		if err := p.t.Not(); err != nil {
			return err
		}
	}

	if err := p.t.ReduceLogical(); err != nil {
		return err
	}

	switch p.peek().Type {
	case AND, OR:
		tok := p.advance()
		p.t.PushOperator(operators[tok.Type])

		return p.parseSuperExpr()
	}

	return nil
}

// parseExpression handles exp (relop exp)?
func (p *Parser) parseExpression() error {
	if err := p.parseExp(); err != nil {
		return err
	}

	switch p.peek().Type {
	case LESS, GREATER, LESS_EQ, GREATER_EQ, EQUALS, NOT_EQ:
		tok := p.advance()
		p.t.PushOperator(operators[tok.Type])

		if err := p.parseExp(); err != nil {
			return err
		}

		return p.t.ReduceRelational()
	}

	return nil
}

// parseExp handles term (("+" | "-") term)*
func (p *Parser) parseExp() error {
	if err := p.parseTerm(); err != nil {
		return err
	}

	if err := p.t.ReduceExp(); err != nil {
		return err
	}

	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		tok := p.advance()
		p.t.PushOperator(operators[tok.Type])

		if err := p.parseTerm(); err != nil {
			return err
		}

		if err := p.t.ReduceExp(); err != nil {
			return err
		}
	}

	return nil
}

// parseTerm handles factor (("*" | "/") factor)*
func (p *Parser) parseTerm() error {
	if err := p.parseFactor(); err != nil {
		return err
	}

	if err := p.t.ReduceTerm(); err != nil {
		return err
	}

	for p.peek().Type == STAR || p.peek().Type == SLASH {
		tok := p.advance()
		p.t.PushOperator(operators[tok.Type])

		if err := p.parseFactor(); err != nil {
			return err
		}

		if err := p.t.ReduceTerm(); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseFactor() error {
	switch p.peek().Type {
	case LPAREN:
		p.advance()
		p.t.OpenParen()

		if err := p.parseSuperExpr(); err != nil {
			return err
		}

		if _, err := p.expect(RPAREN); err != nil {
			return err
		}

		return p.t.CloseParen()
	case MINUS:
		p.advance()

		if err := p.parseFactor(); err != nil {
			return err
		}

		return p.t.Negate()
	}

	return p.parseVarConst()
}

func (p *Parser) parseVarConst() error {
	tok := p.advance()

	switch tok.Type {
	case INT_LIT:
		v, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return p.fmtError(tok, "integer literal %s out of range", tok.Lexeme)
		}

		return p.t.PushInt(v)
	case FLOAT_LIT:
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return p.fmtError(tok, "bad float literal %s", tok.Lexeme)
		}

		return p.t.PushFloat(v)
	case STRING_LIT:
		return p.t.PushString(tok.Lexeme)
	case TRUE, FALSE:
		return p.t.PushBool(tok.Type == TRUE)
	case IDENTIFIER:
		switch p.peek().Type {
		case LPAREN:
			p.pos-- // parseCall consumes the name

			if err := p.parseCall(); err != nil {
				return err
			}

			return p.t.CallValue()
		case LBRACKET:
			return p.parseIndex(tok)
		}

		return p.t.PushVariable(tok.Lexeme)
	}

	return p.fmtError(tok, "expected an expression, got %s (%q)", tok.Type, tok.Lexeme)
}
