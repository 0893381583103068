// Package diag holds the error taxonomy shared by the compiler and the virtual machine.
//
// Every error carries a Kind which is one of the sentinel errors below, so callers
// classify failures with errors.Is:
//
//	if errors.Is(err, diag.ErrArity) { ... }
package diag

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrDeclaration    = errors.New("declaration error")
	ErrType           = errors.New("type error")
	ErrArity          = errors.New("arity error")
	ErrReturnContract = errors.New("return contract error")
	ErrResource       = errors.New("resource limit exceeded")
	ErrBounds         = errors.New("array bounds error")
	ErrRuntime        = errors.New("runtime error")
)

// Error is a compile-time or run-time failure.
type Error struct {
	Kind error
	Line int // 1-based source line, 0 if unknown
	Quad int // quadruple index for run-time errors, -1 otherwise
	Msg  string

	From loc.PC // where the error was raised
}

// New creates a compile-time error. Line may be 0 and filled in later with At.
func New(kind error, line int, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Line: line,
		Quad: -1,
		Msg:  fmt.Sprintf(format, args...),
		From: loc.Caller(1),
	}
}

// Runtime creates an error raised while executing quadruple q.
func Runtime(kind error, q int, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Quad: q,
		Msg:  fmt.Sprintf(format, args...),
		From: loc.Caller(1),
	}
}

// At fills in the source line of err if it is an *Error without one.
func At(err error, line int) error {
	e, ok := err.(*Error)
	if ok && e.Line == 0 {
		e.Line = line
	}
	return err
}

func (e *Error) Error() string {
	switch {
	case e.Quad >= 0:
		return fmt.Sprintf("quadruple %d: %v: %s", e.Quad, e.Kind, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v: %s", e.Line, e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// Format prints the raising call site with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	_, _ = fmt.Fprint(s, e.Error())
	if verb == 'v' && s.Flag('+') {
		_, _ = fmt.Fprintf(s, " (from %v)", e.From)
	}
}
