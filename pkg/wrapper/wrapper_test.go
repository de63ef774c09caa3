package wrapper

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/leapstack-labs/pgext/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decls(names ...string) []core.Declaration {
	out := make([]core.Declaration, len(names))
	for i, n := range names {
		out[i] = core.Declaration{Name: n}
	}
	return out
}

func TestGenerate_Empty(t *testing.T) {
	src := Generate(nil)

	require.NotEmpty(t, src)
	assert.Equal(t, "#include \"postgres.h\"\n#include \"fmgr.h\"\n\nPG_MODULE_MAGIC;\n\n", string(src))
	assert.NotContains(t, string(src), "PG_FUNCTION_INFO_V1")
}

func TestGenerate_Lines(t *testing.T) {
	src := string(Generate(decls("add", "sub")))

	want := Preamble +
		"PG_FUNCTION_INFO_V1(add);\n\n" +
		"PG_FUNCTION_INFO_V1(sub);\n\n"
	assert.Equal(t, want, src)
}

func TestGenerate_FromScannedSQL(t *testing.T) {
	sql := `
create function one() returns int as 'x' language c;
create function skipped() returns int as $$ select 1 $$ language sql;
create function two() returns int as 'x' language c;
create function three() returns int as 'x' language c;`

	scanned, err := parser.ScanDeclarations(sql)
	require.NoError(t, err)

	src := string(Generate(scanned))
	assert.Equal(t, 3, strings.Count(src, "PG_FUNCTION_INFO_V1("))

	one := strings.Index(src, "PG_FUNCTION_INFO_V1(one);")
	two := strings.Index(src, "PG_FUNCTION_INFO_V1(two);")
	three := strings.Index(src, "PG_FUNCTION_INFO_V1(three);")
	assert.True(t, one < two && two < three, "registration lines follow declaration order")
	assert.NotContains(t, src, "skipped")

	for i := 0; i < 3; i++ {
		assert.Equal(t, src, string(Generate(scanned)), "output is deterministic")
	}
}

func TestDedupe(t *testing.T) {
	out, dropped := Dedupe(decls("a", "b", "a", "c", "b"))

	assert.Equal(t, []string{"a", "b", "c"}, core.DeclarationNames(out))
	assert.Equal(t, []string{"a", "b"}, dropped)

	out, dropped = Dedupe(nil)
	assert.Empty(t, out)
	assert.Nil(t, dropped)
}

func TestDuplicates(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Duplicates(decls("a", "b", "b", "a", "a")))
	assert.Nil(t, Duplicates(decls("x", "y")))
}

func TestIsCIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"add", true},
		{"_private", true},
		{"Add2", true},
		{"snake_case_9", true},
		{"", false},
		{"my func", false},
		{"2fast", false},
		{"a-b", false},
		{"caf\u00e9", false},
		{"say\"hi", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCIdentifier(tt.name))
		})
	}
}

