package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pgext/pkg/core"
)

// pg_config flags for the directories the pipeline needs.
const (
	FlagIncludeDirServer = "--includedir-server"
	FlagPkgLibDir        = "--pkglibdir"
	FlagShareDir         = "--sharedir"
)

// DefaultPgConfig is the pg_config executable looked up on PATH.
const DefaultPgConfig = "pg_config"

// HostLayoutProvider answers directory queries about the PostgreSQL
// installation. Each call is a fresh query; nothing is cached.
type HostLayoutProvider interface {
	Query(ctx context.Context, flag string) (string, error)
}

// PgConfig queries an installed pg_config executable.
type PgConfig struct {
	Path   string
	Runner Runner
	Logger *slog.Logger
}

// Query runs `<pg_config> <flag>` and returns the single directory it prints.
func (p *PgConfig) Query(ctx context.Context, flag string) (string, error) {
	path := p.Path
	if path == "" {
		path = DefaultPgConfig
	}
	command := []string{path, flag}

	res, err := p.Runner.Run(ctx, path, flag)
	if err != nil {
		return "", &core.Error{Kind: core.HostConfigUnavailable, Command: command, Err: err}
	}
	if !res.Success() {
		return "", &core.Error{
			Kind:    core.HostConfigUnavailable,
			Command: command,
			Output:  res.Diagnostics(),
			Err:     fmt.Errorf("exit status %d", res.ExitCode),
		}
	}

	dir := strings.TrimSpace(res.Stdout)
	switch {
	case dir == "":
		return "", &core.Error{Kind: core.HostConfigUnavailable, Command: command, Err: fmt.Errorf("empty output")}
	case strings.ContainsAny(dir, "\r\n"):
		return "", &core.Error{
			Kind:    core.HostConfigUnavailable,
			Command: command,
			Output:  res.Stdout,
			Err:     fmt.Errorf("expected a single directory, got %d lines", strings.Count(dir, "\n")+1),
		}
	}

	if p.Logger != nil {
		p.Logger.Info("Found Postgres directory", "flag", flag, "dir", dir)
	}
	return dir, nil
}

// StaticLayout answers queries from a fixed layout. Unset directories are
// reported as unavailable, as pg_config would.
type StaticLayout core.HostLayout

// Query implements HostLayoutProvider.
func (s StaticLayout) Query(_ context.Context, flag string) (string, error) {
	var dir string
	switch flag {
	case FlagIncludeDirServer:
		dir = s.IncludeDirServer
	case FlagPkgLibDir:
		dir = s.PkgLibDir
	case FlagShareDir:
		dir = s.ShareDir
	default:
		return "", &core.Error{Kind: core.HostConfigUnavailable, Err: fmt.Errorf("unknown flag %s", flag)}
	}
	if dir == "" {
		return "", &core.Error{Kind: core.HostConfigUnavailable, Err: fmt.Errorf("%s is not configured", flag)}
	}
	return dir, nil
}

// ResolveLayout queries every directory the pipeline uses.
func ResolveLayout(ctx context.Context, p HostLayoutProvider) (core.HostLayout, error) {
	var layout core.HostLayout
	for _, q := range []struct {
		flag string
		dst  *string
	}{
		{FlagIncludeDirServer, &layout.IncludeDirServer},
		{FlagPkgLibDir, &layout.PkgLibDir},
		{FlagShareDir, &layout.ShareDir},
	} {
		dir, err := p.Query(ctx, q.flag)
		if err != nil {
			return core.HostLayout{}, err
		}
		*q.dst = dir
	}
	return layout, nil
}
