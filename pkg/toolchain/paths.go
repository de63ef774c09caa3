package toolchain

import (
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pgext/pkg/core"
)

// Default build layout under <project>/target.
const (
	DefaultProfile     = "release"
	DefaultBuildSubdir = "postgres"
	DefaultCompiler    = "gcc"
)

// Paths locates every file a build reads or writes.
type Paths struct {
	ProjectDir string
	// LibSearchDir holds the prebuilt static library: <project>/target/<profile>.
	LibSearchDir string
	// StaticLibPath is <LibSearchDir>/lib<name>.a.
	StaticLibPath string
	// BuildDir is <LibSearchDir>/<subdir>.
	BuildDir  string
	Artifacts core.BuildArtifacts
}

// NewPaths computes the build layout for ext. Empty profile and subdir fall
// back to the defaults.
func NewPaths(projectDir, profile, subdir string, ext core.Extension) Paths {
	if profile == "" {
		profile = DefaultProfile
	}
	if subdir == "" {
		subdir = DefaultBuildSubdir
	}

	libSearch := filepath.Join(projectDir, "target", profile)
	build := filepath.Join(libSearch, subdir)
	return Paths{
		ProjectDir:    projectDir,
		LibSearchDir:  libSearch,
		StaticLibPath: filepath.Join(libSearch, ext.StaticLibraryName()),
		BuildDir:      build,
		Artifacts: core.BuildArtifacts{
			SourcePath:        filepath.Join(build, ext.SourceName()),
			ObjectPath:        filepath.Join(build, ext.ObjectName()),
			SharedLibraryPath: filepath.Join(build, ext.SharedLibraryName()),
			ScriptPath:        filepath.Join(build, ext.ScriptName()),
			DescriptorPath:    filepath.Join(build, ext.ControlName()),
		},
	}
}

// DeploymentFor returns where each artifact of ext is installed.
func DeploymentFor(ext core.Extension, layout core.HostLayout) core.Deployment {
	return core.Deployment{
		SharedLibrary: filepath.Join(layout.PkgLibDir, ext.SharedLibraryName()),
		Script:        filepath.Join(layout.ExtensionDir(), ext.ScriptName()),
		Descriptor:    filepath.Join(layout.ExtensionDir(), ext.ControlName()),
	}
}

// SplitExtraFlags splits caller-supplied link flags on single spaces,
// dropping empty fragments. Quoting is not interpreted.
func SplitExtraFlags(extra string) []string {
	var flags []string
	for _, f := range strings.Split(extra, " ") {
		if f != "" {
			flags = append(flags, f)
		}
	}
	return flags
}

// CompileArgs returns the compiler arguments that build the wrapper object.
func (p Paths) CompileArgs(ext core.Extension, includeDir string) []string {
	return []string{
		"-c", p.Artifacts.SourcePath,
		"-fPIC",
		"-o", p.Artifacts.ObjectPath,
		"-I" + includeDir,
		"-L" + p.LibSearchDir,
		"-l" + ext.Name,
	}
}

// LinkArgs returns the compiler arguments that link the shared library. The
// static library is linked whole so the registration symbols survive.
func (p Paths) LinkArgs(extra string) []string {
	args := []string{
		p.Artifacts.ObjectPath,
		"-shared",
		"-o", p.Artifacts.SharedLibraryPath,
		"-Wl,--whole-archive", p.StaticLibPath, "-Wl,--no-whole-archive",
	}
	return append(args, SplitExtraFlags(extra)...)
}
