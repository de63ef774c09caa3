// Package commands implements the pgext subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/pgext/internal/cli/config"
	"github.com/leapstack-labs/pgext/internal/cli/output"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/leapstack-labs/pgext/internal/state"
	"github.com/leapstack-labs/pgext/pkg/adapters/postgres"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the loaded config, logger and a renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or defaults outside a
// normal command run.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// projectDir returns the PATH argument or the configured directory.
func projectDir(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.ProjectDir
}

// engineConfig maps CLI settings onto the engine.
func engineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	return engine.Config{
		PgConfig:        cfg.PgConfig,
		Compiler:        cfg.Compiler,
		ManifestFile:    cfg.Manifest,
		SQLDir:          cfg.SQLDir,
		Profile:         cfg.Profile,
		BuildSubdir:     cfg.BuildSubdir,
		AtomicDeploy:    cfg.AtomicDeploy,
		DedupeFunctions: cfg.DedupeFunctions,
		CommandTimeout:  cfg.CommandTimeout,
		Logger:          logger,
	}
}

// historyPath resolves the history database of the project in dir.
func historyPath(cfg *config.Config, dir string) string {
	if filepath.IsAbs(cfg.HistoryFile) {
		return cfg.HistoryFile
	}
	return filepath.Join(engine.ProjectDir(dir), cfg.HistoryFile)
}

// openHistory returns the engine's history opener for cfg, or nil when
// history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) func(context.Context, string) (engine.History, error) {
	if !cfg.History {
		return nil
	}
	return func(ctx context.Context, projectDir string) (engine.History, error) {
		store, err := state.OpenStore(ctx, historyPath(cfg, projectDir), logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// newEngine creates an engine. History is opened by the engine once a
// project is discovered. With create_extension set an installer is
// connected. The returned cleanup closes both.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	ecfg := engineConfig(cfg, logger)
	ecfg.OpenHistory = openHistory(cfg, logger)

	closeInstaller := func() {}
	if cfg.CreateExtension {
		inst := postgres.New(logger)
		if err := inst.Connect(ctx, cfg.DSN); err != nil {
			return nil, nil, fmt.Errorf("create_extension: %w", err)
		}
		ecfg.Installer = inst
		closeInstaller = func() { _ = inst.Close() }
	}

	eng := engine.New(ecfg)
	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close build history", "error", err)
		}
		closeInstaller()
	}
	return eng, cleanup, nil
}
