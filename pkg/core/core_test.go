package core

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension_Validate(t *testing.T) {
	tests := []struct {
		name      string
		ext       Extension
		errSubstr string
	}{
		{"valid", Extension{Name: "demo", Description: "x", Version: "0.1.0"}, ""},
		{"empty name", Extension{Description: "x", Version: "0.1.0"}, "package.name is empty"},
		{"empty description", Extension{Name: "demo", Version: "0.1.0"}, "package.description is empty"},
		{"empty version", Extension{Name: "demo", Description: "x"}, "package.version is empty"},
		{"slash in version", Extension{Name: "demo", Description: "x", Version: "1/2"}, "path separator"},
		{"backslash in name", Extension{Name: `a\b`, Description: "x", Version: "1"}, "path separator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ext.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestExtension_FileNames(t *testing.T) {
	ext := Extension{Name: "demo", Description: "x", Version: "0.1.0"}

	assert.Equal(t, "demo--0.1.0.sql", ext.ScriptName())
	assert.Equal(t, "demo.control", ext.ControlName())
	assert.Equal(t, "demo.c", ext.SourceName())
	assert.Equal(t, "demo.o", ext.ObjectName())
	assert.Equal(t, "libdemo.so", ext.SharedLibraryName())
	assert.Equal(t, "libdemo.a", ext.StaticLibraryName())
}

func TestHostLayout_ExtensionDir(t *testing.T) {
	assert.Equal(t, "/usr/share/postgresql/16/extension", HostLayout{ShareDir: "/usr/share/postgresql/16"}.ExtensionDir())
	assert.Empty(t, HostLayout{}.ExtensionDir())
}

func TestError_Classification(t *testing.T) {
	cause := fs.ErrPermission
	err := fmt.Errorf("pipeline: %w", Wrap(DeployFailed, "libdemo.so", cause))

	assert.Equal(t, DeployFailed, KindOf(err))
	assert.True(t, IsKind(err, DeployFailed))
	assert.False(t, IsKind(err, LinkFailed))
	assert.True(t, errors.Is(err, fs.ErrPermission), "cause should stay reachable")
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:    CompileFailed,
		Command: []string{"gcc", "-c", "demo.c"},
		Output:  "demo.c:1:10: fatal error: postgres.h: No such file or directory\n",
		Err:     errors.New("exit status 1"),
	}

	msg := err.Error()
	assert.Contains(t, msg, "compile: CompileFailed")
	assert.Contains(t, msg, `"gcc -c demo.c"`)
	assert.Contains(t, msg, "exit status 1")
	assert.Contains(t, msg, "fatal error: postgres.h: No such file or directory")
}

func TestKind_Stage(t *testing.T) {
	assert.Equal(t, "manifest", ManifestIncomplete.Stage())
	assert.Equal(t, "scan", ScanFailed.Stage())
	assert.Equal(t, "pg_config", HostConfigUnavailable.Stage())
	assert.Equal(t, "link", LinkFailed.Stage())
	assert.Equal(t, "unknown", Kind("Other").Stage())
}

func TestDeclarationNames(t *testing.T) {
	decls := []Declaration{{Name: "add"}, {Name: "sub", Schema: "math"}}
	assert.Equal(t, []string{"add", "sub"}, DeclarationNames(decls))
	assert.Equal(t, "math.sub", decls[1].QualifiedName())
	assert.Equal(t, "add", decls[0].QualifiedName())
}

func TestKinds_AllHaveStage(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 10)

	var stages []string
	for _, k := range kinds {
		stage := k.Stage()
		assert.NotEqual(t, "unknown", stage, k)
		if len(stages) == 0 || stages[len(stages)-1] != stage {
			stages = append(stages, stage)
		}
	}
	assert.Equal(t, []string{"manifest", "scan", "write", "pg_config", "compile", "link", "deploy"}, stages)
}

