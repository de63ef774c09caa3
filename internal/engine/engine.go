// Package engine runs the extension pipeline: project discovery, manifest
// reading, declaration scanning, wrapper generation and the toolchain steps.
// Stages run strictly one after another and the first failure ends the run.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/pgext/internal/state"
	"github.com/leapstack-labs/pgext/pkg/adapters/postgres"
	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/leapstack-labs/pgext/pkg/manifest"
	"github.com/leapstack-labs/pgext/pkg/toolchain"
	"github.com/spf13/afero"
)

// DefaultSQLDir is the project directory holding the SQL definition file.
const DefaultSQLDir = "sql"

// Installer creates a deployed extension in a live database.
type Installer interface {
	CreateExtension(ctx context.Context, ext core.Extension) (postgres.Status, error)
}

// History records the outcome of every run.
type History interface {
	RecordBuild(ctx context.Context, b state.Build) error
}

// Engine builds extension projects.
type Engine struct {
	fs     afero.Fs
	runner toolchain.Runner
	layout toolchain.HostLayoutProvider
	logger *slog.Logger

	manifestFile   string
	sqlDir         string
	profile        string
	buildSubdir    string
	compiler       string
	atomicDeploy   bool
	dedupe         bool
	commandTimeout time.Duration
	installer      Installer
	history        History
	openHistory    func(ctx context.Context, projectDir string) (History, error)

	mu     sync.Mutex
	opened map[string]History
}

// Config holds engine configuration.
type Config struct {
	// FS is the filesystem projects are read from and built into.
	// Defaults to the OS filesystem.
	FS afero.Fs
	// Runner executes pg_config and the compiler. Defaults to os/exec.
	Runner toolchain.Runner
	// Layout answers host layout queries. Defaults to running PgConfig.
	Layout toolchain.HostLayoutProvider
	// PgConfig is the pg_config executable used when Layout is nil.
	PgConfig string
	// Compiler is the C compiler driver (default gcc).
	Compiler string

	// ManifestFile is the manifest path relative to the project directory.
	ManifestFile string
	// SQLDir is the directory, relative to the project, holding the one SQL file.
	SQLDir string
	// Profile and BuildSubdir select <project>/target/<profile>/<subdir>.
	Profile     string
	BuildSubdir string

	AtomicDeploy    bool
	DedupeFunctions bool
	CommandTimeout  time.Duration

	// Installer, when set, runs CREATE EXTENSION after a successful deploy.
	Installer Installer
	// History, when set, records each run whether it succeeded or not.
	History History
	// OpenHistory, used when History is nil, opens the history of a project
	// once it has been discovered. Runs that fail before discovery are not
	// recorded, and an open failure is logged without failing the run.
	OpenHistory func(ctx context.Context, projectDir string) (History, error)

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine, filling unset fields with defaults.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	layout := cfg.Layout
	if layout == nil {
		pgConfig := cfg.PgConfig
		if pgConfig == "" {
			pgConfig = toolchain.DefaultPgConfig
		}
		layout = &toolchain.PgConfig{Path: pgConfig, Runner: runner, Logger: logger}
	}

	e := &Engine{
		fs:             fs,
		runner:         runner,
		layout:         layout,
		logger:         logger,
		manifestFile:   cfg.ManifestFile,
		sqlDir:         cfg.SQLDir,
		profile:        cfg.Profile,
		buildSubdir:    cfg.BuildSubdir,
		compiler:       cfg.Compiler,
		atomicDeploy:   cfg.AtomicDeploy,
		dedupe:         cfg.DedupeFunctions,
		commandTimeout: cfg.CommandTimeout,
		installer:      cfg.Installer,
		history:        cfg.History,
		openHistory:    cfg.OpenHistory,
		opened:         make(map[string]History),
	}
	if e.manifestFile == "" {
		e.manifestFile = manifest.DefaultFile
	}
	if e.sqlDir == "" {
		e.sqlDir = DefaultSQLDir
	}
	if e.compiler == "" {
		e.compiler = toolchain.DefaultCompiler
	}

	logger.Debug("initializing engine",
		"manifest", e.manifestFile,
		"sql_dir", e.sqlDir,
		"compiler", e.compiler,
		"atomic_deploy", e.atomicDeploy)
	return e
}

// Close closes every history the engine opened itself.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for dir, h := range e.opened {
		if c, ok := h.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		delete(e.opened, dir)
	}
	return errors.Join(errs...)
}

// historyFor returns the history a run of p is recorded in, or nil.
func (e *Engine) historyFor(ctx context.Context, p *Project, logger *slog.Logger) History {
	if e.history != nil {
		return e.history
	}
	if e.openHistory == nil || p == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.opened[p.Dir]; ok {
		return h
	}
	h, err := e.openHistory(ctx, p.Dir)
	if err != nil {
		logger.Warn("failed to open build history", "dir", p.Dir, "error", err)
		return nil
	}
	e.opened[p.Dir] = h
	return h
}

// Layout returns the host layout provider in use.
func (e *Engine) Layout() toolchain.HostLayoutProvider {
	return e.layout
}

// driver creates a toolchain driver for one project.
func (e *Engine) driver(p *Project, logger *slog.Logger) *toolchain.Driver {
	return toolchain.NewDriver(toolchain.Config{
		FS:             e.fs,
		Runner:         e.runner,
		Layout:         e.layout,
		Compiler:       e.compiler,
		Logger:         logger,
		AtomicDeploy:   e.atomicDeploy,
		CommandTimeout: e.commandTimeout,
	}, p.Extension, e.paths(p))
}

func (e *Engine) paths(p *Project) toolchain.Paths {
	return toolchain.NewPaths(p.Dir, e.profile, e.buildSubdir, p.Extension)
}
