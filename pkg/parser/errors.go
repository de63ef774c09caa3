package parser

import "fmt"

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnterminatedString      = "unterminated quoted string"
	ErrUnterminatedIdentifier  = "unterminated quoted identifier"
	ErrUnterminatedDollarQuote = "unterminated dollar-quoted string"
	ErrUnterminatedComment     = "unterminated /* comment"
	ErrEmptyIdentifier         = "zero-length delimited identifier"
	ErrInvalidDollarTag        = "invalid dollar-quote delimiter"
	ErrControlCharacter        = "unexpected control character %U"
	ErrUnexpectedCharacter     = "unexpected character %q"
	ErrInvalidEncoding         = "invalid UTF-8 encoding"
)
