package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/leapstack-labs/pgext/pkg/manifest"
	"github.com/leapstack-labs/pgext/pkg/parser"
	"github.com/leapstack-labs/pgext/pkg/wrapper"
	"github.com/spf13/afero"
)

// Project discovery errors.
var (
	ErrNoSQLDir         = errors.New("Missing sql directory at crate root") //nolint:staticcheck // user-facing message
	ErrNoSQLFile        = errors.New("Missing SQL script file")             //nolint:staticcheck // user-facing message
	ErrMultipleSQLFiles = errors.New("Multiple SQL script files")           //nolint:staticcheck // user-facing message
)

// Project is an extension project found on disk.
type Project struct {
	Dir          string
	ManifestPath string
	SQLPath      string
	Extension    core.Extension
}

// Discover reads the manifest in dir and locates its SQL definition file.
func (e *Engine) Discover(dir string) (*Project, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	manifestPath := e.manifestFile
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(abs, manifestPath)
	}
	ext, err := manifest.Read(e.fs, manifestPath)
	if err != nil {
		return nil, err
	}

	sqlPath, err := FindSQLFile(e.fs, filepath.Join(abs, e.sqlDir))
	if err != nil {
		return nil, err
	}

	e.logger.Debug("discovered project", "dir", abs, "name", ext.Name, "version", ext.Version, "sql", sqlPath)
	return &Project{Dir: abs, ManifestPath: manifestPath, SQLPath: sqlPath, Extension: ext}, nil
}

// FindSQLFile returns the single *.sql file directly inside dir.
func FindSQLFile(fs afero.Fs, dir string) (string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoSQLDir, dir)
		}
		return "", fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			continue
		}
		found = append(found, entry.Name())
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoSQLFile, dir)
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		sort.Strings(found)
		return "", fmt.Errorf("%w in %s: %s", ErrMultipleSQLFiles, dir, strings.Join(found, ", "))
	}
}

// Analysis is what the scanner found in a project's SQL file.
type Analysis struct {
	// Declarations are the native functions in order of appearance, after
	// deduplication when it is enabled.
	Declarations []core.Declaration
	// Duplicates names every function declared more than once.
	Duplicates []string
	// Source is the generated wrapper.
	Source []byte
}

// Analyze scans the project's SQL file and generates the wrapper source.
// Nothing is written.
func (e *Engine) Analyze(p *Project) (*Analysis, error) {
	data, err := afero.ReadFile(e.fs, p.SQLPath)
	if err != nil {
		return nil, core.Wrap(core.ScanFailed, p.SQLPath, err)
	}

	decls, err := parser.ScanDeclarations(string(data))
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) && ce.Path == "" {
			ce.Path = p.SQLPath
		}
		return nil, err
	}

	for _, d := range decls {
		if !wrapper.IsCIdentifier(d.Name) {
			return nil, core.Errorf(core.ScanFailed, p.SQLPath,
				"function %q at %s is not a valid C identifier", d.Name, d.Pos)
		}
	}

	a := &Analysis{Duplicates: wrapper.Duplicates(decls)}
	for _, name := range a.Duplicates {
		e.logger.Warn("function declared more than once", "name", name, "sql", p.SQLPath)
	}
	if e.dedupe {
		decls, _ = wrapper.Dedupe(decls)
	}
	a.Declarations = decls
	a.Source = wrapper.Generate(decls)

	e.logger.Debug("scanned declarations", "count", len(decls), "names", core.DeclarationNames(decls))
	return a, nil
}

// ProjectDir returns the absolute form of dir, or dir cleaned when it cannot
// be resolved.
func ProjectDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}
