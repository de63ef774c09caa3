package parser

import (
	"strings"

	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/leapstack-labs/pgext/pkg/token"
)

// NativeLanguage is the LANGUAGE value that marks a function as implemented
// in the extension's shared library.
const NativeLanguage = "c"

// TokenStream yields tokens strictly left to right. Next returns an EOF
// token once the input is exhausted.
type TokenStream interface {
	Next() (Token, error)
}

// scanState is a position in the declaration walk.
type scanState int

const (
	seekCreate       scanState = iota // skipping to the next CREATE
	seekFunction                      // after CREATE, expecting [OR REPLACE] FUNCTION
	seekReplace                       // after CREATE OR, expecting REPLACE
	seekName                          // after FUNCTION, expecting the function name
	seekQualified                     // after a name, a DOT makes it a schema
	seekLanguage                      // inside the statement, looking for LANGUAGE
	seekLanguageName                  // after LANGUAGE, expecting its value
)

// scanner holds the walk's state and the candidate under consideration.
type scanner struct {
	state     scanState
	candidate core.Declaration
	decls     []core.Declaration
}

// Scan walks stream once and returns the functions declared with
// LANGUAGE c, in order of appearance. Repeated names are kept.
func Scan(stream TokenStream) ([]core.Declaration, error) {
	s := &scanner{}
	for {
		tok, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TOKEN_EOF {
			return s.decls, nil
		}
		s.step(tok)
	}
}

// ScanDeclarations tokenizes input and scans it for native declarations.
// Lexical errors are reported as core.ScanFailed.
func ScanDeclarations(input string) ([]core.Declaration, error) {
	decls, err := Scan(NewLexer(input))
	if err != nil {
		return nil, core.Wrap(core.ScanFailed, "", err)
	}
	return decls, nil
}

// step advances the walk by one token.
func (s *scanner) step(tok Token) {
	// A statement separator ends any declaration in progress.
	if tok.Type == TOKEN_SEMICOLON {
		s.reset()
		return
	}

	switch s.state {
	case seekCreate:
		if tok.Type == TOKEN_CREATE {
			s.state = seekFunction
		}

	case seekFunction:
		switch tok.Type {
		case TOKEN_FUNCTION:
			s.state = seekName
		case TOKEN_OR:
			s.state = seekReplace
		case TOKEN_CREATE:
			s.state = seekFunction
		default:
			s.reset()
		}

	case seekReplace:
		switch tok.Type {
		case TOKEN_REPLACE:
			s.state = seekFunction
		case TOKEN_CREATE:
			s.state = seekFunction
		default:
			s.reset()
		}

	case seekName:
		if !token.IsWord(tok.Type) {
			s.reset()
			return
		}
		s.candidate.Name = tok.Literal
		s.candidate.Pos = tok.Pos
		s.state = seekQualified

	case seekQualified:
		if tok.Type == TOKEN_DOT {
			s.candidate = core.Declaration{Schema: s.candidate.QualifiedName()}
			s.state = seekName
			return
		}
		s.state = seekLanguage
		s.seekLanguage(tok)

	case seekLanguage:
		s.seekLanguage(tok)

	case seekLanguageName:
		if isNativeLanguage(tok) {
			s.decls = append(s.decls, s.candidate)
		}
		// Any other language is skipped along with the rest of the statement.
		s.reset()
	}
}

func (s *scanner) seekLanguage(tok Token) {
	if tok.Type == TOKEN_LANGUAGE {
		s.state = seekLanguageName
	}
}

func (s *scanner) reset() {
	s.state = seekCreate
	s.candidate = core.Declaration{}
}

// isNativeLanguage reports whether tok names the C language, written as a
// word or a string literal in any case.
func isNativeLanguage(tok Token) bool {
	if !token.IsWord(tok.Type) && tok.Type != TOKEN_STRING {
		return false
	}
	return strings.EqualFold(tok.Literal, NativeLanguage)
}
