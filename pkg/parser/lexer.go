// Package parser tokenizes PostgreSQL extension scripts and extracts the
// functions they declare with a native (LANGUAGE c) implementation.
package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/pgext/pkg/token"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current char under examination
	width   int  // byte width of ch
	line    int  // current line number (1-based)
	col     int  // current column number (1-based, in runes)

	err *LexError

	// Comments collected during lexing
	Comments []*token.Comment
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos = l.readPos
	if l.readPos >= len(l.input) {
		l.ch, l.width = 0, 0 // ASCII NUL = EOF
	} else {
		l.ch, l.width = utf8.DecodeRuneInString(l.input[l.readPos:])
	}
	l.readPos += l.width
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// atEOF reports whether the input is exhausted. A NUL byte inside the
// input is not EOF.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// advanceTo consumes characters until offset is reached.
func (l *Lexer) advanceTo(offset int) {
	for l.pos < offset && !l.atEOF() {
		l.readChar()
	}
}

// currentPos returns the current position.
func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// Err returns the first lexical error, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// fail records the first error and returns an ILLEGAL token. Once failed,
// the lexer keeps returning ILLEGAL.
func (l *Lexer) fail(pos Position, format string, args ...any) Token {
	if l.err == nil {
		l.err = &LexError{Pos: pos, Message: fmt.Sprintf(format, args...)}
	}
	return Token{Type: TOKEN_ILLEGAL, Literal: l.input[pos.Offset:l.pos], Pos: pos}
}

// Next returns the next token, or the lexical error that stopped tokenization.
func (l *Lexer) Next() (Token, error) {
	tok := l.NextToken()
	if tok.Type == TOKEN_ILLEGAL {
		return tok, l.Err()
	}
	return tok, nil
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if l.err != nil {
		return Token{Type: TOKEN_ILLEGAL, Pos: l.err.Pos}
	}
	if !l.skipWhitespaceAndComments() {
		return Token{Type: TOKEN_ILLEGAL, Pos: l.err.Pos}
	}

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	var tok Token
	switch l.ch {
	case '(':
		tok = l.newToken(TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case '[':
		tok = l.newToken(TOKEN_LBRACKET, "[")
	case ']':
		tok = l.newToken(TOKEN_RBRACKET, "]")
	case '{':
		tok = l.newToken(TOKEN_LBRACE, "{")
	case '}':
		tok = l.newToken(TOKEN_RBRACE, "}")
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case ';':
		tok = l.newToken(TOKEN_SEMICOLON, ";")
	case '.':
		if isDigit(l.peekChar()) {
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		tok = l.newToken(TOKEN_DOT, ".")
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			tok = Token{Type: TOKEN_DCOLON, Literal: "::", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_COLON, ":")
		}
	case '\'':
		s, ok := l.readString()
		if !ok {
			return l.fail(pos, ErrUnterminatedString)
		}
		return Token{Type: TOKEN_STRING, Literal: s, Pos: pos}
	case '"':
		return l.readQuotedIdentifier(pos)
	case '$':
		return l.readDollar(pos)
	case '\\':
		return l.readMetaCommand(pos)
	default:
		switch {
		case (l.ch == 'e' || l.ch == 'E') && l.peekChar() == '\'':
			l.readChar() // skip 'E'
			s, ok := l.readEscapeString()
			if !ok {
				return l.fail(pos, ErrUnterminatedString)
			}
			return Token{Type: TOKEN_STRING, Literal: s, Pos: pos}
		case isIdentStart(l.ch):
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(strings.ToLower(tok.Literal))
			tok.Pos = pos
			return tok
		case isDigit(l.ch):
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		case isOpChar(l.ch):
			return l.readOperator(pos)
		case l.ch == utf8.RuneError && l.width == 1:
			l.readChar()
			return l.fail(pos, ErrInvalidEncoding)
		case unicode.IsControl(l.ch):
			ch := l.ch
			l.readChar()
			return l.fail(pos, ErrControlCharacter, ch)
		default:
			ch := l.ch
			l.readChar()
			return l.fail(pos, ErrUnexpectedCharacter, ch)
		}
	}

	l.readChar()
	return tok
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType TokenType, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace and collects comments. It
// returns false if a comment is left unterminated.
func (l *Lexer) skipWhitespaceAndComments() bool {
	for {
		for isSpace(l.ch) {
			l.readChar()
		}

		// Collect line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			l.collectLineComment()
			continue
		}

		// Collect block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			if !l.collectBlockComment() {
				return false
			}
			continue
		}

		return true
	}
}

// collectLineComment collects a line comment.
func (l *Lexer) collectLineComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	// Consume until end of line
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// collectBlockComment collects a block comment. Block comments nest.
func (l *Lexer) collectBlockComment() bool {
	startPos := l.currentPos()
	startOffset := l.pos

	l.readChar() // skip '/'
	l.readChar() // skip '*'

	depth := 1
	for depth > 0 {
		switch {
		case l.atEOF():
			l.fail(startPos, ErrUnterminatedComment)
			return false
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
		}
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.BlockComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
	return true
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's
func (l *Lexer) readString() (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == '\'' {
			if l.peekChar() != '\'' {
				l.readChar() // skip closing quote
				return result.String(), true
			}
			// Doubled quote escape
			result.WriteByte('\'')
			l.readChar()
			l.readChar()
			continue
		}
		result.WriteString(l.input[l.pos:l.readPos])
		l.readChar()
	}
	return result.String(), false
}

// readEscapeString reads the body of an E'...' literal, which accepts
// backslash escapes in addition to doubled quotes.
func (l *Lexer) readEscapeString() (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		switch {
		case l.ch == '\\':
			l.readChar()
			if l.atEOF() {
				return result.String(), false
			}
			result.WriteString(unescape(l.ch))
			l.readChar()
		case l.ch == '\'' && l.peekChar() == '\'':
			result.WriteByte('\'')
			l.readChar()
			l.readChar()
		case l.ch == '\'':
			l.readChar() // skip closing quote
			return result.String(), true
		default:
			result.WriteString(l.input[l.pos:l.readPos])
			l.readChar()
		}
	}
	return result.String(), false
}

func unescape(ch rune) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	default:
		return string(ch)
	}
}

// readQuotedIdentifier reads a double-quoted identifier.
// Handles doubled double quotes as escape: "col""name" -> col"name
func (l *Lexer) readQuotedIdentifier(pos Position) Token {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == '"' {
			if l.peekChar() == '"' {
				result.WriteByte('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			if result.Len() == 0 {
				return l.fail(pos, ErrEmptyIdentifier)
			}
			return Token{Type: TOKEN_IDENT, Literal: result.String(), Pos: pos}
		}
		result.WriteString(l.input[l.pos:l.readPos])
		l.readChar()
	}
	return l.fail(pos, ErrUnterminatedIdentifier)
}

// readDollar reads a positional parameter ($1) or a dollar-quoted string
// ($$...$$ or $tag$...$tag$). The literal of a dollar-quoted string is its body.
func (l *Lexer) readDollar(pos Position) Token {
	start := l.pos

	if isDigit(l.peekChar()) {
		l.readChar() // skip '$'
		for isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TOKEN_PARAM, Literal: l.input[start:l.pos], Pos: pos}
	}

	l.readChar() // skip '$'
	if isIdentStart(l.ch) {
		for isTagChar(l.ch) {
			l.readChar()
		}
	}
	if l.ch != '$' {
		return l.fail(pos, ErrInvalidDollarTag)
	}
	l.readChar() // skip '$' closing the delimiter
	delim := l.input[start:l.pos]

	bodyStart := l.pos
	idx := strings.Index(l.input[bodyStart:], delim)
	if idx < 0 {
		l.advanceTo(len(l.input))
		return l.fail(pos, ErrUnterminatedDollarQuote)
	}

	body := l.input[bodyStart : bodyStart+idx]
	l.advanceTo(bodyStart + idx + len(delim))
	return Token{Type: TOKEN_DOLLAR_STRING, Literal: body, Pos: pos}
}

// readMetaCommand reads a psql meta-command such as \echo, which runs to
// the end of the line.
func (l *Lexer) readMetaCommand(pos Position) Token {
	start := l.pos
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
	return Token{
		Type:    TOKEN_BACKSLASH,
		Literal: strings.TrimRight(l.input[start:l.pos], "\r"),
		Pos:     pos,
	}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	// Read integer part
	for isDigit(l.ch) {
		l.readChar()
	}

	// Read decimal part
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Read exponent part (e.g., 1e10, 1E-5)
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar() // skip 'e' or 'E'
			if l.ch == '+' || l.ch == '-' {
				l.readChar() // skip sign
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return l.input[start:l.pos]
}

// readOperator reads the longest operator at the current position. An
// embedded comment start ends the operator, and a trailing + or - is only
// kept when the operator contains one of ~!@#%^&|`?.
func (l *Lexer) readOperator(pos Position) Token {
	end := l.pos
	for end < len(l.input) && isOpChar(rune(l.input[end])) {
		if end > l.pos && (strings.HasPrefix(l.input[end:], "--") || strings.HasPrefix(l.input[end:], "/*")) {
			break
		}
		end++
	}

	op := l.input[l.pos:end]
	if len(op) > 1 && !strings.ContainsAny(op, "~!@#%^&|`?") {
		for len(op) > 1 && (op[len(op)-1] == '+' || op[len(op)-1] == '-') {
			op = op[:len(op)-1]
		}
	}

	l.advanceTo(l.pos + len(op))
	return Token{Type: lookupOperator(op), Literal: op, Pos: pos}
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentChar(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch) || ch == '$'
}

func isTagChar(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// isDigit returns true if ch is an ASCII digit.
func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isOpChar(ch rune) bool {
	return ch != 0 && strings.ContainsRune("+-*/<>=~!@#%^&|`?", ch)
}

// Tokenize returns all tokens from the input, ending with EOF. It stops at
// the first lexical error.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			return tokens, nil
		}
	}
}
