package compiler

import (
	"fmt"

	"gomojo/pkg/quad"
)

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	INT_LIT    // 42
	FLOAT_LIT  // 3.14
	STRING_LIT // "..."

	// Keywords
	PROGRAM // "program"
	VAR     // "var"
	DEF     // "def"
	MAIN    // "main"
	INT     // "int"
	FLOAT   // "float"
	STRING  // "string"
	BOOL    // "bool"
	VOID    // "void"
	IF      // "if"
	ELSE    // "else"
	WHILE   // "while"
	RETURN  // "return"
	PRINT   // "print"
	READ    // "read"
	AND     // "and"
	OR      // "or"
	NOT     // "not"
	TRUE    // "True"
	FALSE   // "False"
	BUILTIN // create_turtle, move_forward, ...

	// Paired delimiters
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :

	// Operators
	PLUS       // +
	MINUS      // -
	STAR       // *
	SLASH      // /
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INT_LIT:    "INT_LIT",
	FLOAT_LIT:  "FLOAT_LIT",
	STRING_LIT: "STRING_LIT",
	PROGRAM:    "PROGRAM",
	VAR:        "VAR",
	DEF:        "DEF",
	MAIN:       "MAIN",
	INT:        "INT",
	FLOAT:      "FLOAT",
	STRING:     "STRING",
	BOOL:       "BOOL",
	VOID:       "VOID",
	IF:         "IF",
	ELSE:       "ELSE",
	WHILE:      "WHILE",
	RETURN:     "RETURN",
	PRINT:      "PRINT",
	READ:       "READ",
	AND:        "AND",
	OR:         "OR",
	NOT:        "NOT",
	TRUE:       "TRUE",
	FALSE:      "FALSE",
	BUILTIN:    "BUILTIN",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	COLON:      "COLON",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	ASSIGN:     "ASSIGN",
	EQUALS:     "EQUALS",
	NOT_EQ:     "NOT_EQ",
	LESS:       "LESS",
	GREATER:    "GREATER",
	LESS_EQ:    "LESS_EQ",
	GREATER_EQ: "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// operators maps operator tokens to the opcode they reduce to.
var operators = map[TokenType]quad.Opcode{
	PLUS:       quad.Add,
	MINUS:      quad.Sub,
	STAR:       quad.Mul,
	SLASH:      quad.Div,
	EQUALS:     quad.Equal,
	NOT_EQ:     quad.NotEqual,
	LESS:       quad.Less,
	GREATER:    quad.Greater,
	LESS_EQ:    quad.LessEq,
	GREATER_EQ: quad.GreaterEq,
	AND:        quad.And,
	OR:         quad.Or,
}

// builtins maps the turtle statement names to their drawing opcodes.
var builtins = map[string]quad.Opcode{
	"create_turtle":  quad.CreateTurtle,
	"reset":          quad.Reset,
	"finish_drawing": quad.FinishDrawing,
	"pen_up":         quad.PenUp,
	"pen_down":       quad.PenDown,
	"begin_fill":     quad.BeginFill,
	"end_fill":       quad.EndFill,
	"pen_color":      quad.PenColor,
	"fill_color":     quad.FillColor,
	"pen_width":      quad.PenWidth,
	"move_forward":   quad.MoveForward,
	"move_right":     quad.MoveRight,
	"move_left":      quad.MoveLeft,
	"turn_right":     quad.TurnRight,
	"turn_left":      quad.TurnLeft,
	"draw_square":    quad.DrawSquare,
	"draw_triangle":  quad.DrawTriangle,
	"draw_circle":    quad.DrawCircle,
	"draw_rectangle": quad.DrawRectangle,
	"set_position":   quad.SetPosition,
	"set_speed":      quad.SetSpeed,
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the source text; unescaped contents for string literals
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
