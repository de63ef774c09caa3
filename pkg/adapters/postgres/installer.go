// Package postgres installs a deployed extension into a live PostgreSQL
// database through the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/pgext/pkg/core"
)

// ErrNotAvailable is returned when the server does not list the extension
// in pg_available_extensions, usually because the files were deployed to a
// different installation than the one the DSN points at.
var ErrNotAvailable = errors.New("extension not available on server")

// Installer runs CREATE EXTENSION against a database.
type Installer struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// New creates an installer without a connection.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{Logger: logger}
}

// NewWithDB creates an installer over an existing connection.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Installer {
	i := New(logger)
	i.DB = db
	return i
}

// Connect opens and pings a connection. dsn is a postgres:// URL or a
// key=value string; PG* environment variables fill in what it omits.
func (i *Installer) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres dsn: %w", err)
	}

	i.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	i.DB = db
	return nil
}

// Close closes the connection, if any.
func (i *Installer) Close() error {
	if i.DB == nil {
		return nil
	}
	return i.DB.Close()
}

// Available describes a row of pg_available_extensions.
type Available struct {
	Name             string
	DefaultVersion   string
	InstalledVersion string // empty when not installed
}

const availableQuery = `SELECT name, default_version, installed_version FROM pg_available_extensions WHERE name = $1`

// Lookup returns the server's view of the named extension.
func (i *Installer) Lookup(ctx context.Context, name string) (Available, error) {
	if i.DB == nil {
		return Available{}, fmt.Errorf("database connection not established")
	}

	var (
		a         Available
		def       sql.NullString
		installed sql.NullString
	)
	err := i.DB.QueryRowContext(ctx, availableQuery, name).Scan(&a.Name, &def, &installed)
	if errors.Is(err, sql.ErrNoRows) {
		return Available{}, fmt.Errorf("%s: %w", name, ErrNotAvailable)
	}
	if err != nil {
		return Available{}, fmt.Errorf("failed to query pg_available_extensions: %w", err)
	}
	a.DefaultVersion = def.String
	a.InstalledVersion = installed.String
	return a, nil
}

// Status is the outcome of CreateExtension.
type Status struct {
	// Created is false when the extension was already installed.
	Created          bool   `json:"created" yaml:"created"`
	InstalledVersion string `json:"installed_version" yaml:"installed_version"`
}

// CreateExtension checks that the server offers exactly the version that
// was built, then runs CREATE EXTENSION IF NOT EXISTS. An installed
// extension is left as it is.
func (i *Installer) CreateExtension(ctx context.Context, ext core.Extension) (Status, error) {
	avail, err := i.Lookup(ctx, ext.Name)
	if err != nil {
		return Status{}, err
	}
	if avail.DefaultVersion != ext.Version {
		return Status{}, fmt.Errorf("server offers %s version %q, built %q", ext.Name, avail.DefaultVersion, ext.Version)
	}
	if avail.InstalledVersion != "" {
		i.Logger.Info("extension already installed", "name", ext.Name, "version", avail.InstalledVersion)
		return Status{InstalledVersion: avail.InstalledVersion}, nil
	}

	stmt := "CREATE EXTENSION IF NOT EXISTS " + pgx.Identifier{ext.Name}.Sanitize()
	i.Logger.Debug("executing", "sql", stmt)
	if _, err := i.DB.ExecContext(ctx, stmt); err != nil {
		return Status{}, fmt.Errorf("failed to create extension %s: %w", ext.Name, err)
	}

	i.Logger.Info("extension created", "name", ext.Name, "version", ext.Version)
	return Status{Created: true, InstalledVersion: ext.Version}, nil
}
