// Package compiler provides the mojo lexer, the recursive-descent parser and
// the single-pass translator that emits quadruples for the virtual machine.
//
// Pipeline: mojo source → Lex → Parse (firing Translator events) → Program
package compiler
