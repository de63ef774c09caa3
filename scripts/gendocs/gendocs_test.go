package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/pgext/internal/cli"
	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "# CLI Reference")
	assert.Contains(t, string(index), "[`build`](/cli/build)")
	assert.Contains(t, string(index), "`--pg-config`")
	assert.Contains(t, string(index), "## Failure Stages")
	assert.NotContains(t, string(index), "Getting Help")

	build, err := os.ReadFile(filepath.Join(dir, "build.md"))
	require.NoError(t, err)
	assert.Contains(t, string(build), "pgext build [PATH]")
	assert.Contains(t, string(build), "## Examples")
	assert.Contains(t, string(build), "# pgext build")

	_, err = os.Stat(filepath.Join(dir, "history.md"))
	assert.NoError(t, err)
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	doc, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "`PGEXT_SQL_DIR`")
	assert.Contains(t, string(doc), "`extra_link_flags`")
	assert.Contains(t, string(doc), "`--extra`")
}

func TestCollectConfigKeys(t *testing.T) {
	keys := collectConfigKeys(cli.NewRootCmd())

	byKey := make(map[string]configKey, len(keys))
	for _, k := range keys {
		byKey[k.Key] = k
	}

	assert.NotContains(t, byKey, "-")
	assert.Equal(t, "`--timeout`", byKey["command_timeout"].Flag)
	assert.Equal(t, "`0s`", byKey["command_timeout"].Default)
	assert.Equal(t, "`true`", byKey["atomic_deploy"].Default)
	assert.Equal(t, "`gcc`", byKey["compiler"].Default)
	assert.Equal(t, "PGEXT_DSN", byKey["dsn"].Env)
	assert.Empty(t, byKey["dsn"].Default)
}

func TestMarkdownWriter_TableEscapesPipes(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"A"}, [][]string{{"x|y"}})
	assert.Equal(t, "| A |\n| --- |\n| x\\|y |\n\n", string(w.Bytes()))
}

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"shared indent", "  pgext build\n  pgext scan -o json", "pgext build\npgext scan -o json"},
		{"nested indent kept", "\n  pgext build \\\n    --release\n", "pgext build \\\n  --release"},
		{"blank lines ignored", "  a\n\n  b", "a\n\nb"},
		{"no indent", "a\nb", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedent(tt.in))
		})
	}
}

func TestFailureRows(t *testing.T) {
	rows := failureRows()
	require.Len(t, rows, len(core.Kinds())+2)

	assert.Equal(t, "`discover`", rows[0][0])
	assert.Equal(t, "`create_extension`", rows[len(rows)-1][0])

	for _, row := range rows[1 : len(rows)-1] {
		assert.NotEmpty(t, row[2], row[1])
	}
	assert.Equal(t, []string{"`compile`", "`CompileFailed`", "the C compiler rejected the wrapper source"}, rows[8])
}
