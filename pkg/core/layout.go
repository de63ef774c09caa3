package core

import "path/filepath"

// HostLayout is the set of directories a PostgreSQL installation expects
// extension artifacts in, as reported by pg_config.
type HostLayout struct {
	IncludeDirServer string `json:"includedir_server" yaml:"includedir_server"`
	PkgLibDir        string `json:"pkglibdir" yaml:"pkglibdir"`
	ShareDir         string `json:"sharedir" yaml:"sharedir"`
}

// ExtensionDir returns the directory holding control files and install scripts.
func (h HostLayout) ExtensionDir() string {
	if h.ShareDir == "" {
		return ""
	}
	return filepath.Join(h.ShareDir, "extension")
}

// BuildArtifacts are the files a pipeline run produces under the build directory.
type BuildArtifacts struct {
	SourcePath        string `json:"source" yaml:"source"`
	ObjectPath        string `json:"object" yaml:"object"`
	SharedLibraryPath string `json:"shared_library" yaml:"shared_library"`
	ScriptPath        string `json:"script" yaml:"script"`
	DescriptorPath    string `json:"descriptor" yaml:"descriptor"`
}

// Deployment records where each artifact was installed.
type Deployment struct {
	SharedLibrary string `json:"shared_library" yaml:"shared_library"`
	Script        string `json:"script" yaml:"script"`
	Descriptor    string `json:"descriptor" yaml:"descriptor"`
}
