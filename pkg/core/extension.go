package core

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgext/pkg/token"
)

// Extension is the identity of a PostgreSQL extension as declared by the
// project manifest. Name and Version are used verbatim in artifact file names.
type Extension struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
}

// Validate checks the identity invariants: every field is set and the values
// used in file names cannot escape the build directory.
func (e Extension) Validate() error {
	for _, f := range []struct{ key, val string }{
		{"name", e.Name},
		{"description", e.Description},
		{"version", e.Version},
	} {
		if f.val == "" {
			return fmt.Errorf("package.%s is empty", f.key)
		}
	}
	if strings.ContainsAny(e.Name, `/\`) {
		return fmt.Errorf("package.name %q contains a path separator", e.Name)
	}
	if strings.ContainsAny(e.Version, `/\`) {
		return fmt.Errorf("package.version %q contains a path separator", e.Version)
	}
	return nil
}

// ScriptName returns the versioned install script file name (name--version.sql).
func (e Extension) ScriptName() string {
	return fmt.Sprintf("%s--%s.sql", e.Name, e.Version)
}

// ControlName returns the descriptor file name (name.control).
func (e Extension) ControlName() string {
	return e.Name + ".control"
}

// SourceName returns the generated wrapper file name (name.c).
func (e Extension) SourceName() string {
	return e.Name + ".c"
}

// ObjectName returns the compiled wrapper object file name (name.o).
func (e Extension) ObjectName() string {
	return e.Name + ".o"
}

// SharedLibraryName returns the linked module file name (libname.so).
func (e Extension) SharedLibraryName() string {
	return "lib" + e.Name + ".so"
}

// StaticLibraryName returns the file name of the prebuilt archive (libname.a).
func (e Extension) StaticLibraryName() string {
	return "lib" + e.Name + ".a"
}

// Declaration is a SQL function declared with a native (LANGUAGE c)
// implementation. Name keeps the spelling used in the SQL file.
type Declaration struct {
	Name   string         `json:"name" yaml:"name"`
	Schema string         `json:"schema,omitempty" yaml:"schema,omitempty"`
	Pos    token.Position `json:"-" yaml:"-"`
}

// QualifiedName returns schema.name when a schema was given, else name.
func (d Declaration) QualifiedName() string {
	if d.Schema == "" {
		return d.Name
	}
	return d.Schema + "." + d.Name
}

// DeclarationNames returns the function names of decls in order.
func DeclarationNames(decls []Declaration) []string {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return names
}
