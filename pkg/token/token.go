// Package token defines the token types for PostgreSQL extension scripts.
//
// The set is closed: keywords the declaration scanner reacts to, plus the
// surrounding vocabulary of CREATE FUNCTION statements so that tokens read
// back as words rather than opaque identifiers in diagnostics.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // DOLLAR_STRING keeps the ALL_CAPS token convention
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT         // identifier, bare or "quoted"
	NUMBER        // 123, 45.67, 1e10
	STRING        // 'hello', E'hello\n'
	DOLLAR_STRING // $$body$$, $tag$body$tag$
	PARAM         // $1

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	DPIPE   // ||
	EQ      // =
	NE      // != or <>
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=
	OP      // any other operator, e.g. ->, @>, ~~

	// Punctuation
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DCOLON    // ::
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
	BACKSLASH // psql meta-command, e.g. \echo ... to end of line

	// Keywords (alphabetical)
	AGGREGATE
	AND
	AS
	ATOMIC
	BEGIN
	CALLED
	COST
	CREATE
	DEFAULT
	DO
	END
	EXTENSION
	FUNCTION
	IMMUTABLE
	IN
	INOUT
	LANGUAGE
	LEAKPROOF
	NOT
	NULL
	ON
	OR
	OUT
	PARALLEL
	PROCEDURE
	REPLACE
	RETURN
	RETURNS
	ROWS
	SCHEMA
	SECURITY
	SETOF
	STABLE
	STRICT
	SUPPORT
	TABLE
	TRIGGER
	TYPE
	VARIADIC
	VOLATILE
	WINDOW
	WITH
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:         "IDENT",
	NUMBER:        "NUMBER",
	STRING:        "STRING",
	DOLLAR_STRING: "DOLLAR_STRING",
	PARAM:         "PARAM",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	DPIPE:   "||",
	EQ:      "=",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	OP:      "OP",

	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	DCOLON:    "::",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	LBRACE:    "{",
	RBRACE:    "}",
	BACKSLASH: "\\",

	AGGREGATE: "AGGREGATE",
	AND:       "AND",
	AS:        "AS",
	ATOMIC:    "ATOMIC",
	BEGIN:     "BEGIN",
	CALLED:    "CALLED",
	COST:      "COST",
	CREATE:    "CREATE",
	DEFAULT:   "DEFAULT",
	DO:        "DO",
	END:       "END",
	EXTENSION: "EXTENSION",
	FUNCTION:  "FUNCTION",
	IMMUTABLE: "IMMUTABLE",
	IN:        "IN",
	INOUT:     "INOUT",
	LANGUAGE:  "LANGUAGE",
	LEAKPROOF: "LEAKPROOF",
	NOT:       "NOT",
	NULL:      "NULL",
	ON:        "ON",
	OR:        "OR",
	OUT:       "OUT",
	PARALLEL:  "PARALLEL",
	PROCEDURE: "PROCEDURE",
	REPLACE:   "REPLACE",
	RETURN:    "RETURN",
	RETURNS:   "RETURNS",
	ROWS:      "ROWS",
	SCHEMA:    "SCHEMA",
	SECURITY:  "SECURITY",
	SETOF:     "SETOF",
	STABLE:    "STABLE",
	STRICT:    "STRICT",
	SUPPORT:   "SUPPORT",
	TABLE:     "TABLE",
	TRIGGER:   "TRIGGER",
	TYPE:      "TYPE",
	VARIADIC:  "VARIADIC",
	VOLATILE:  "VOLATILE",
	WINDOW:    "WINDOW",
	WITH:      "WITH",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"aggregate": AGGREGATE,
	"and":       AND,
	"as":        AS,
	"atomic":    ATOMIC,
	"begin":     BEGIN,
	"called":    CALLED,
	"cost":      COST,
	"create":    CREATE,
	"default":   DEFAULT,
	"do":        DO,
	"end":       END,
	"extension": EXTENSION,
	"function":  FUNCTION,
	"immutable": IMMUTABLE,
	"in":        IN,
	"inout":     INOUT,
	"language":  LANGUAGE,
	"leakproof": LEAKPROOF,
	"not":       NOT,
	"null":      NULL,
	"on":        ON,
	"or":        OR,
	"out":       OUT,
	"parallel":  PARALLEL,
	"procedure": PROCEDURE,
	"replace":   REPLACE,
	"return":    RETURN,
	"returns":   RETURNS,
	"rows":      ROWS,
	"schema":    SCHEMA,
	"security":  SECURITY,
	"setof":     SETOF,
	"stable":    STABLE,
	"strict":    STRICT,
	"support":   SUPPORT,
	"table":     TABLE,
	"trigger":   TRIGGER,
	"type":      TYPE,
	"variadic":  VARIADIC,
	"volatile":  VOLATILE,
	"window":    WINDOW,
	"with":      WITH,
}

// LookupIdent returns the token type for the given lowercase word.
// If the word is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AGGREGATE && t <= WITH
}

// IsOperator returns true if the token type is an operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= OP
}

// IsWord returns true for identifiers and keywords, the tokens that can
// name an object.
func IsWord(t TokenType) bool {
	return t == IDENT || IsKeyword(t)
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// String formats the token for diagnostics.
func (t Token) String() string {
	switch {
	case t.Type == EOF:
		return "end of input"
	case t.Literal == "":
		return t.Type.String()
	default:
		return fmt.Sprintf("%s %q", t.Type, t.Literal)
	}
}
