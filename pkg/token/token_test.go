package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		word string
		want TokenType
	}{
		{"create", CREATE},
		{"function", FUNCTION},
		{"language", LANGUAGE},
		{"replace", REPLACE},
		{"c", IDENT},
		{"CREATE", IDENT}, // callers lowercase first
		{"add", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupIdent(tt.word))
		})
	}
}

func TestClassification(t *testing.T) {
	assert.True(t, IsKeyword(CREATE))
	assert.True(t, IsKeyword(WITH))
	assert.False(t, IsKeyword(IDENT))
	assert.False(t, IsKeyword(SEMICOLON))

	assert.True(t, IsOperator(PLUS))
	assert.True(t, IsOperator(OP))
	assert.False(t, IsOperator(DOT))

	assert.True(t, IsWord(IDENT))
	assert.True(t, IsWord(STRICT))
	assert.False(t, IsWord(STRING))
	assert.False(t, IsWord(DOLLAR_STRING))
}

func TestKeywordTablesAgree(t *testing.T) {
	for word, typ := range keywords {
		name, ok := tokenNames[typ]
		if assert.True(t, ok, "keyword %q has no name", word) {
			assert.Equal(t, word, strings.ToLower(name))
		}
	}
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "end of input", Token{Type: EOF}.String())
	assert.Equal(t, `IDENT "add"`, Token{Type: IDENT, Literal: "add"}.String())
	assert.Equal(t, ";", Token{Type: SEMICOLON}.String())
	assert.Equal(t, "TOKEN(9999)", TokenType(9999).String())
}

func TestPosition(t *testing.T) {
	assert.Equal(t, "3:7", Position{Line: 3, Column: 7}.String())
	assert.Equal(t, "-", Position{}.String())

	span := Span{Start: Position{Line: 1, Offset: 2}, End: Position{Line: 1, Offset: 5}}
	assert.True(t, span.IsValid())
	assert.True(t, span.Contains(2))
	assert.False(t, span.Contains(5))
}
