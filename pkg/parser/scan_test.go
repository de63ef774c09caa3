package parser

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDeclarations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single native function",
			input: "create function add(a integer, b integer) returns integer as 'file.so','function' language c strict;",
			want:  []string{"add"},
		},
		{
			name:  "sql function is skipped",
			input: "create function add(a integer, b integer) returns integer language sql as $$ select 1 $$;",
			want:  []string{},
		},
		{
			name:  "or replace",
			input: "CREATE OR REPLACE FUNCTION hello(text) RETURNS text AS 'MODULE_PATHNAME' LANGUAGE C IMMUTABLE STRICT;",
			want:  []string{"hello"},
		},
		{
			name:  "language before body",
			input: "create function f() returns int language c as '$libdir/demo', 'f';",
			want:  []string{"f"},
		},
		{
			name:  "language as string literal",
			input: "create function f() returns int as 'x' language 'C';",
			want:  []string{"f"},
		},
		{
			name:  "schema qualified name keeps the function part",
			input: "create function public.add(int, int) returns int as 'x' language c;",
			want:  []string{"add"},
		},
		{
			name:  "quoted name keeps case",
			input: `create function "AddThem"(int) returns int as 'x' language c;`,
			want:  []string{"AddThem"},
		},
		{
			name:  "marker after statement end does not leak",
			input: "create function f() returns int as 'x' language plpgsql; select 'language c';",
			want:  []string{},
		},
		{
			name:  "separator before marker discards the candidate",
			input: "create function f() returns int as 'x'; create table t (language c);",
			want:  []string{},
		},
		{
			name:  "other create statements are skipped",
			input: "create table t (a int); create type c; create function g() returns int as 'x' language c;",
			want:  []string{"g"},
		},
		{
			name:  "missing terminator at end of input",
			input: "create function f() returns int as 'x'",
			want:  []string{},
		},
		{
			name:  "final statement without semicolon",
			input: "create function f() returns int as 'x' language c",
			want:  []string{"f"},
		},
		{
			name: "order and duplicates preserved",
			input: `
				create function b() returns int as 'x' language c;
				create function a() returns int as $$ select 1 $$ language sql;
				create function c() returns int as 'x' language c;
				create function b() returns int as 'x' language c;`,
			want: []string{"b", "c", "b"},
		},
		{
			name: "keywords inside bodies and comments are ignored",
			input: `
				-- create function hidden() language c;
				/* create function hidden2() language c; */
				create function real_one() returns text as $body$
					create function inner() language c;
				$body$ language plpgsql;
				create function native() returns int as 'x' language c;`,
			want: []string{"native"},
		},
		{
			name:  "procedures are not functions",
			input: "create procedure p() as 'x' language c;",
			want:  []string{},
		},
		{
			name:  "psql guard line",
			input: "\\echo Use \"CREATE EXTENSION demo\" to load this file. \\quit\ncreate function add(int, int) returns int as 'MODULE_PATHNAME' language c;",
			want:  []string{"add"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, err := ScanDeclarations(tt.input)
			require.NoError(t, err)
			names := core.DeclarationNames(decls)
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestScanDeclarations_SchemaAndPosition(t *testing.T) {
	decls, err := ScanDeclarations("create function ext.add(int) returns int\n  as 'x' language c;\n\ncreate function\n  sub() returns int as 'x' language c;")
	require.NoError(t, err)
	require.Len(t, decls, 2)

	assert.Equal(t, "add", decls[0].Name)
	assert.Equal(t, "ext", decls[0].Schema)
	assert.Equal(t, "ext.add", decls[0].QualifiedName())
	assert.Equal(t, 1, decls[0].Pos.Line)
	assert.Equal(t, 21, decls[0].Pos.Column)

	assert.Equal(t, "sub", decls[1].Name)
	assert.Empty(t, decls[1].Schema)
	assert.Equal(t, 5, decls[1].Pos.Line)
	assert.Equal(t, 3, decls[1].Pos.Column)
}

func TestScanDeclarations_Deterministic(t *testing.T) {
	input := "create function x() returns int as 'x' language c; create function y() returns int as 'x' language c;"
	first, err := ScanDeclarations(input)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := ScanDeclarations(input)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScanDeclarations_LexErrorIsScanFailed(t *testing.T) {
	_, err := ScanDeclarations("create function f() returns text as 'unterminated language c;")
	require.Error(t, err)

	assert.True(t, core.IsKind(err, core.ScanFailed))

	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 1, lexErr.Pos.Line)
	assert.Equal(t, 37, lexErr.Pos.Column)
	assert.Contains(t, err.Error(), "line 1, column 37")
}

// recordingStream counts how often the scanner pulls a token.
type recordingStream struct {
	toks  []Token
	pulls int
}

func (r *recordingStream) Next() (Token, error) {
	if r.pulls >= len(r.toks) {
		return Token{Type: TOKEN_EOF}, nil
	}
	tok := r.toks[r.pulls]
	r.pulls++
	return tok, nil
}

func TestScan_ReadsEachTokenOnce(t *testing.T) {
	toks, err := Tokenize("create function add() returns int as 'x' language c; select 1;")
	require.NoError(t, err)

	stream := &recordingStream{toks: toks}
	decls, err := Scan(stream)
	require.NoError(t, err)

	assert.Equal(t, []string{"add"}, core.DeclarationNames(decls))
	assert.Equal(t, len(toks), stream.pulls, "every token is pulled exactly once, EOF included")
}

type failingStream struct{}

func (failingStream) Next() (Token, error) {
	return Token{Type: TOKEN_ILLEGAL}, errors.New("boom")
}

func TestScan_PropagatesStreamError(t *testing.T) {
	decls, err := Scan(failingStream{})
	require.EqualError(t, err, "boom")
	assert.Nil(t, decls)
}
