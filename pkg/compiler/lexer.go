package compiler

import (
	"unicode"

	"gomojo/pkg/diag"
)

// keywords maps source text to its keyword TokenType. Keywords are case
// sensitive: "True" is a literal, "true" an identifier.
var keywords = map[string]TokenType{
	"program": PROGRAM,
	"var":     VAR,
	"def":     DEF,
	"main":    MAIN,
	"int":     INT,
	"float":   FLOAT,
	"string":  STRING,
	"bool":    BOOL,
	"void":    VOID,
	"if":      IF,
	"else":    ELSE,
	"while":   WHILE,
	"return":  RETURN,
	"print":   PRINT,
	"read":    READ,
	"and":     AND,
	"or":      OR,
	"not":     NOT,
	"True":    TRUE,
	"False":   FALSE,
}

// punct holds the single-rune tokens.
var punct = map[rune]TokenType{
	'{': LBRACE,
	'}': RBRACE,
	'(': LPAREN,
	')': RPAREN,
	'[': LBRACKET,
	']': RBRACKET,
	';': SEMICOLON,
	',': COMMA,
	':': COLON,
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'<': LESS,
	'>': GREATER,
	'=': ASSIGN,
}

// pairs holds the two-rune operators. They win over punct.
var pairs = map[string]TokenType{
	"<=": LESS_EQ,
	">=": GREATER_EQ,
	"==": EQUALS,
	"!=": NOT_EQ,
}

// Lexer scans one source text.
type Lexer struct {
	src  []rune
	pos  int // next rune
	line int // 1-based
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

// at returns the rune off positions ahead, or 0 past the end.
func (l *Lexer) at(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}

	return l.src[l.pos+off]
}

func (l *Lexer) advance() rune {
	r := l.at(0)
	if l.eof() {
		return r
	}

	l.pos++
	if r == '\n' {
		l.line++
	}

	return r
}

// skipTrivia consumes whitespace and both comment styles.
func (l *Lexer) skipTrivia() error {
	for !l.eof() {
		switch {
		case unicode.IsSpace(l.at(0)):
			l.advance()
		case l.at(0) == '/' && l.at(1) == '/':
			for !l.eof() && l.at(0) != '\n' {
				l.advance()
			}
		case l.at(0) == '/' && l.at(1) == '*':
			opened := l.line
			l.pos += 2

			for l.at(0) != '*' || l.at(1) != '/' {
				if l.eof() {
					return diag.New(diag.ErrSyntax, opened, "unterminated block comment")
				}

				l.advance()
			}

			l.pos += 2
		default:
			return nil
		}
	}

	return nil
}

func (l *Lexer) take(start int, tt TokenType, line int) Token {
	return Token{Type: tt, Lexeme: string(l.src[start:l.pos]), Line: line}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || isDigit(r)
}

// word scans an identifier, keyword or builtin name.
func (l *Lexer) word() Token {
	start := l.pos
	for isWordRune(l.at(0)) {
		l.advance()
	}

	tok := l.take(start, IDENTIFIER, l.line)

	if kw, ok := keywords[tok.Lexeme]; ok {
		tok.Type = kw
	} else if _, ok := builtins[tok.Lexeme]; ok {
		tok.Type = BUILTIN
	}

	return tok
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (l *Lexer) digits() {
	for isDigit(l.at(0)) {
		l.advance()
	}
}

// number scans digits, or digits '.' digits for a float.
// A dot not followed by a digit ends the integer.
func (l *Lexer) number() Token {
	start := l.pos
	l.digits()

	if l.at(0) != '.' || !isDigit(l.at(1)) {
		return l.take(start, INT_LIT, l.line)
	}

	l.advance()
	l.digits()

	return l.take(start, FLOAT_LIT, l.line)
}

var escapes = map[rune]rune{
	'n':  '\n',
	't':  '\t',
	'"':  '"',
	'\\': '\\',
}

// quoted scans a string literal. The lexeme is the unescaped text.
func (l *Lexer) quoted() (Token, error) {
	line := l.line
	l.advance()

	var val []rune

	for {
		r := l.advance()

		switch {
		case r == '"':
			return Token{Type: STRING_LIT, Lexeme: string(val), Line: line}, nil
		case r == 0 && l.eof(), r == '\n':
			return Token{}, diag.New(diag.ErrSyntax, line, "unterminated string literal")
		case r == '\\':
			esc := l.advance()

			e, ok := escapes[esc]
			if !ok {
				return Token{}, diag.New(diag.ErrSyntax, line, "unknown escape sequence \\%c", esc)
			}

			val = append(val, e)
		default:
			val = append(val, r)
		}
	}
}

func (l *Lexer) nextToken() (Token, error) {
	err := l.skipTrivia()
	if err != nil {
		return Token{}, err
	}

	line := l.line
	ch := l.at(0)

	switch {
	case l.eof():
		return Token{Type: EOF, Line: line}, nil
	case ch == '_' || unicode.IsLetter(ch):
		return l.word(), nil
	case isDigit(ch):
		return l.number(), nil
	case ch == '"':
		return l.quoted()
	}

	start := l.pos

	if tt, ok := pairs[string([]rune{ch, l.at(1)})]; ok {
		l.pos += 2
		return l.take(start, tt, line), nil
	}

	if tt, ok := punct[ch]; ok {
		l.advance()
		return l.take(start, tt, line), nil
	}

	return Token{}, diag.New(diag.ErrSyntax, line, "unexpected character %q", ch)
}

// Lex tokenises src. The result ends with an EOF token unless an error is
// returned, in which case it holds the tokens scanned so far.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)

	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}

		tokens = append(tokens, tok)

		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
