package parser

import "github.com/leapstack-labs/pgext/pkg/token"

// TokenType is an alias for token.TokenType.
type TokenType = token.TokenType

// Token is an alias for token.Token.
type Token = token.Token

// Position is an alias for token.Position.
type Position = token.Position

// LookupIdent is re-exported from token package.
var LookupIdent = token.LookupIdent

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	// Special tokens
	TOKEN_EOF     = token.EOF
	TOKEN_ILLEGAL = token.ILLEGAL

	// Literals
	TOKEN_IDENT         = token.IDENT
	TOKEN_NUMBER        = token.NUMBER
	TOKEN_STRING        = token.STRING
	TOKEN_DOLLAR_STRING = token.DOLLAR_STRING
	TOKEN_PARAM         = token.PARAM

	// Punctuation the lexer emits directly
	TOKEN_DOT       = token.DOT
	TOKEN_COMMA     = token.COMMA
	TOKEN_SEMICOLON = token.SEMICOLON
	TOKEN_COLON     = token.COLON
	TOKEN_DCOLON    = token.DCOLON
	TOKEN_LPAREN    = token.LPAREN
	TOKEN_RPAREN    = token.RPAREN
	TOKEN_LBRACKET  = token.LBRACKET
	TOKEN_RBRACKET  = token.RBRACKET
	TOKEN_LBRACE    = token.LBRACE
	TOKEN_RBRACE    = token.RBRACE
	TOKEN_BACKSLASH = token.BACKSLASH

	// Keywords the declaration scanner reacts to
	TOKEN_CREATE   = token.CREATE
	TOKEN_OR       = token.OR
	TOKEN_REPLACE  = token.REPLACE
	TOKEN_FUNCTION = token.FUNCTION
	TOKEN_LANGUAGE = token.LANGUAGE
)

// operatorTypes maps operator spellings with a dedicated token type.
var operatorTypes = map[string]TokenType{
	"+":  token.PLUS,
	"-":  token.MINUS,
	"*":  token.STAR,
	"/":  token.SLASH,
	"%":  token.PERCENT,
	"||": token.DPIPE,
	"=":  token.EQ,
	"<>": token.NE,
	"!=": token.NE,
	"<":  token.LT,
	">":  token.GT,
	"<=": token.LE,
	">=": token.GE,
}

// lookupOperator returns the token type for an operator spelling.
func lookupOperator(op string) TokenType {
	if t, ok := operatorTypes[op]; ok {
		return t
	}
	return token.OP
}
