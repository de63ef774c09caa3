// Package config provides configuration management for the pgext CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/leapstack-labs/pgext/internal/state"
	"github.com/leapstack-labs/pgext/pkg/manifest"
	"github.com/leapstack-labs/pgext/pkg/toolchain"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectDir is the extension project being built. It is set from the
	// PATH argument, not from configuration sources.
	ProjectDir string `koanf:"-"`

	Manifest    string `koanf:"manifest"`
	SQLDir      string `koanf:"sql_dir"`
	Profile     string `koanf:"profile"`
	BuildSubdir string `koanf:"build_subdir"`

	PgConfig       string        `koanf:"pg_config"`
	Compiler       string        `koanf:"compiler"`
	ExtraLinkFlags string        `koanf:"extra_link_flags"`
	CommandTimeout time.Duration `koanf:"command_timeout"`

	AtomicDeploy    bool `koanf:"atomic_deploy"`
	DedupeFunctions bool `koanf:"dedupe_functions"`

	DSN             string `koanf:"dsn"`
	CreateExtension bool   `koanf:"create_extension"`

	// History records every build in HistoryFile, relative to the project
	// unless absolute.
	History     bool   `koanf:"history"`
	HistoryFile string `koanf:"history_file"`

	Verbose      bool   `koanf:"verbose"`
	LogFormat    string `koanf:"log_format"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultManifest    = manifest.DefaultFile
	DefaultSQLDir      = engine.DefaultSQLDir
	DefaultProfile     = toolchain.DefaultProfile
	DefaultBuildSubdir = toolchain.DefaultBuildSubdir
	DefaultPgConfig    = toolchain.DefaultPgConfig
	DefaultCompiler    = toolchain.DefaultCompiler
	DefaultHistoryFile = state.DefaultPath
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // Auto-detect: TTY=styled text, non-TTY=plain text
)

// ConfigFileNames are looked up, in order, in the project directory.
var ConfigFileNames = []string{"pgext.yaml", "pgext.yml"}

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PGEXT_"

// defaults returns the lowest-precedence configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"manifest":         DefaultManifest,
		"sql_dir":          DefaultSQLDir,
		"profile":          DefaultProfile,
		"build_subdir":     DefaultBuildSubdir,
		"pg_config":        DefaultPgConfig,
		"compiler":         DefaultCompiler,
		"extra_link_flags": "",
		"command_timeout":  "0s",
		"atomic_deploy":    true,
		"dedupe_functions": false,
		"dsn":              "",
		"create_extension": false,
		"history":          true,
		"history_file":     DefaultHistoryFile,
		"verbose":          false,
		"log_format":       DefaultLogFormat,
		"output":           DefaultOutput,
	}
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		ProjectDir:   ".",
		Manifest:     DefaultManifest,
		SQLDir:       DefaultSQLDir,
		Profile:      DefaultProfile,
		BuildSubdir:  DefaultBuildSubdir,
		PgConfig:     DefaultPgConfig,
		Compiler:     DefaultCompiler,
		AtomicDeploy: true,
		History:      true,
		HistoryFile:  DefaultHistoryFile,
		LogFormat:    DefaultLogFormat,
		OutputFormat: DefaultOutput,
	}
}
