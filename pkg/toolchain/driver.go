package toolchain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/pgext/pkg/control"
	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/spf13/afero"
)

// Driver performs the side-effecting build steps for one extension: writing
// metadata and source, compiling, linking and deploying. Steps are strictly
// sequential and the first failure stops the run.
type Driver struct {
	FS       afero.Fs
	Runner   Runner
	Layout   HostLayoutProvider
	Compiler string
	Logger   *slog.Logger

	// AtomicDeploy stages every artifact beside its destination and renames
	// them into place only once all copies succeeded.
	AtomicDeploy bool
	// CommandTimeout bounds each external command. Zero means no limit.
	CommandTimeout time.Duration

	Extension core.Extension
	Paths     Paths
}

// Config holds the collaborators of a Driver.
type Config struct {
	FS             afero.Fs
	Runner         Runner
	Layout         HostLayoutProvider
	Compiler       string
	Logger         *slog.Logger
	AtomicDeploy   bool
	CommandTimeout time.Duration
}

// NewDriver creates a driver for ext laid out at paths, applying defaults for
// unset collaborators.
func NewDriver(cfg Config, ext core.Extension, paths Paths) *Driver {
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Compiler == "" {
		cfg.Compiler = DefaultCompiler
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Layout == nil {
		cfg.Layout = &PgConfig{Path: DefaultPgConfig, Runner: cfg.Runner, Logger: cfg.Logger}
	}
	return &Driver{
		FS:             cfg.FS,
		Runner:         cfg.Runner,
		Layout:         cfg.Layout,
		Compiler:       cfg.Compiler,
		Logger:         cfg.Logger,
		AtomicDeploy:   cfg.AtomicDeploy,
		CommandTimeout: cfg.CommandTimeout,
		Extension:      ext,
		Paths:          paths,
	}
}

// Build runs every step in order: metadata, source, compile, link, deploy.
func (d *Driver) Build(ctx context.Context, sqlPath string, src []byte, extra string) (core.Deployment, error) {
	if err := d.WriteMetadata(sqlPath); err != nil {
		return core.Deployment{}, err
	}
	if err := d.WriteSource(src); err != nil {
		return core.Deployment{}, err
	}
	if err := d.Compile(ctx); err != nil {
		return core.Deployment{}, err
	}
	if err := d.Link(ctx, extra); err != nil {
		return core.Deployment{}, err
	}
	return d.Deploy(ctx)
}

// WriteMetadata copies the SQL definition file to the versioned install
// script and writes the control file, creating the build directory.
func (d *Driver) WriteMetadata(sqlPath string) error {
	art := d.Paths.Artifacts
	if err := d.FS.MkdirAll(d.Paths.BuildDir, 0o755); err != nil {
		return core.Wrap(core.MetadataWriteFailed, d.Paths.BuildDir, err)
	}
	if err := copyFile(d.FS, sqlPath, art.ScriptPath); err != nil {
		return core.Wrap(core.MetadataWriteFailed, art.ScriptPath, err)
	}
	if err := afero.WriteFile(d.FS, art.DescriptorPath, control.Render(d.Extension), 0o644); err != nil {
		return core.Wrap(core.MetadataWriteFailed, art.DescriptorPath, err)
	}
	d.Logger.Debug("wrote extension metadata", "script", art.ScriptPath, "control", art.DescriptorPath)
	return nil
}

// WriteSource writes the generated wrapper, replacing any previous content.
func (d *Driver) WriteSource(src []byte) error {
	path := d.Paths.Artifacts.SourcePath
	if err := d.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.Wrap(core.SourceWriteFailed, path, err)
	}
	if err := afero.WriteFile(d.FS, path, src, 0o644); err != nil {
		return core.Wrap(core.SourceWriteFailed, path, err)
	}
	d.Logger.Debug("wrote wrapper source", "path", path, "bytes", len(src))
	return nil
}

// Compile builds the wrapper object against the server headers.
func (d *Driver) Compile(ctx context.Context) error {
	include, err := d.query(ctx, FlagIncludeDirServer)
	if err != nil {
		return err
	}
	return d.invoke(ctx, core.CompileFailed, d.Paths.Artifacts.ObjectPath, d.Paths.CompileArgs(d.Extension, include))
}

// Link produces the shared library from the wrapper object and the whole
// static library, appending extra flags.
func (d *Driver) Link(ctx context.Context, extra string) error {
	return d.invoke(ctx, core.LinkFailed, d.Paths.Artifacts.SharedLibraryPath, d.Paths.LinkArgs(extra))
}

// withTimeout bounds ctx by CommandTimeout when one is set.
func (d *Driver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.CommandTimeout > 0 {
		return context.WithTimeout(ctx, d.CommandTimeout)
	}
	return ctx, func() {}
}

// query asks the host layout provider for one directory.
func (d *Driver) query(ctx context.Context, flag string) (string, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.Layout.Query(ctx, flag)
}

// invoke runs the compiler and classifies a failure as kind.
func (d *Driver) invoke(ctx context.Context, kind core.Kind, output string, args []string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	command := append([]string{d.Compiler}, args...)
	d.Logger.Debug("running", "cmd", strings.Join(command, " "))

	res, err := d.Runner.Run(ctx, d.Compiler, args...)
	if err != nil {
		return &core.Error{Kind: kind, Path: output, Command: command, Output: res.Diagnostics(), Err: err}
	}
	if !res.Success() {
		return &core.Error{
			Kind:    kind,
			Path:    output,
			Command: command,
			Output:  res.Diagnostics(),
			Err:     fmt.Errorf("exit status %d", res.ExitCode),
		}
	}
	return nil
}

// deployItem pairs a built artifact with its installed location.
type deployItem struct {
	src, dst string
}

// Deploy installs the shared library into pkglibdir and the script and
// control file into sharedir/extension.
func (d *Driver) Deploy(ctx context.Context) (core.Deployment, error) {
	var layout core.HostLayout
	var err error
	if layout.PkgLibDir, err = d.query(ctx, FlagPkgLibDir); err != nil {
		return core.Deployment{}, err
	}
	if layout.ShareDir, err = d.query(ctx, FlagShareDir); err != nil {
		return core.Deployment{}, err
	}

	target := DeploymentFor(d.Extension, layout)
	art := d.Paths.Artifacts
	items := []deployItem{
		{art.SharedLibraryPath, target.SharedLibrary},
		{art.ScriptPath, target.Script},
		{art.DescriptorPath, target.Descriptor},
	}

	if d.AtomicDeploy {
		err = d.deployStaged(items)
	} else {
		err = d.deployDirect(items)
	}
	if err != nil {
		return core.Deployment{}, err
	}
	return target, nil
}

// deployDirect copies each artifact in turn. Earlier copies are kept when a
// later one fails.
func (d *Driver) deployDirect(items []deployItem) error {
	for _, it := range items {
		if err := copyFile(d.FS, it.src, it.dst); err != nil {
			return core.Wrap(core.DeployFailed, it.src, fmt.Errorf("copy into %s: %w", it.dst, err))
		}
		d.Logger.Info(fmt.Sprintf("%s copied into %s", it.src, it.dst))
	}
	return nil
}

// deployStaged copies every artifact to a temporary file in its destination
// directory, then renames the temporaries into place. Files being replaced
// are first moved aside. Any failure removes the temporaries, puts the
// displaced files back and leaves the previous install as it was.
func (d *Driver) deployStaged(items []deployItem) error {
	staged := make([]string, 0, len(items))
	cleanup := func(paths []string) {
		for _, tmp := range paths {
			if err := d.FS.Remove(tmp); err != nil && !os.IsNotExist(err) {
				d.Logger.Warn("failed to remove staged file", "path", tmp, "error", err)
			}
		}
	}

	for _, it := range items {
		tmp := stagingName(it.dst)
		staged = append(staged, tmp)
		if err := copyFile(d.FS, it.src, tmp); err != nil {
			cleanup(staged)
			return core.Wrap(core.DeployFailed, it.src, fmt.Errorf("stage into %s: %w", filepath.Dir(it.dst), err))
		}
		d.Logger.Debug("staged artifact", "src", it.src, "tmp", tmp)
	}

	var installed []installedFile
	for i, it := range items {
		inst, err := d.install(staged[i], it.dst)
		if err != nil {
			cleanup(staged[i:])
			d.restore(installed)
			return core.Wrap(core.DeployFailed, it.src, fmt.Errorf("install %s: %w", it.dst, err))
		}
		installed = append(installed, inst)
	}

	for _, inst := range installed {
		if inst.backup == "" {
			continue
		}
		if err := d.FS.Remove(inst.backup); err != nil && !os.IsNotExist(err) {
			d.Logger.Warn("failed to remove replaced file", "path", inst.backup, "error", err)
		}
	}
	for _, it := range items {
		d.Logger.Info(fmt.Sprintf("%s copied into %s", it.src, it.dst))
	}
	return nil
}

// installedFile is a destination written by deployStaged and, when it
// replaced an existing file, where that file was moved.
type installedFile struct {
	dst, backup string
}

// install renames tmp to dst, moving an existing dst aside first. On
// failure the existing dst is back in place.
func (d *Driver) install(tmp, dst string) (installedFile, error) {
	inst := installedFile{dst: dst}
	if _, err := d.FS.Stat(dst); err == nil {
		inst.backup = backupName(dst)
		if err := d.FS.Rename(dst, inst.backup); err != nil {
			return inst, err
		}
	}
	if err := d.FS.Rename(tmp, dst); err != nil {
		if inst.backup != "" {
			if rerr := d.FS.Rename(inst.backup, dst); rerr != nil {
				d.Logger.Warn("failed to restore replaced file", "path", dst, "error", rerr)
			}
		}
		return inst, err
	}
	return inst, nil
}

// restore undoes installs newest first: displaced files return to their
// destination and fresh files are removed.
func (d *Driver) restore(installed []installedFile) {
	for i := len(installed) - 1; i >= 0; i-- {
		inst := installed[i]
		var err error
		if inst.backup != "" {
			if rmErr := d.FS.Remove(inst.dst); rmErr != nil && !os.IsNotExist(rmErr) {
				d.Logger.Warn("failed to remove new file", "path", inst.dst, "error", rmErr)
			}
			err = d.FS.Rename(inst.backup, inst.dst)
		} else {
			err = d.FS.Remove(inst.dst)
		}
		if err != nil {
			d.Logger.Warn("failed to restore previous install", "path", inst.dst, "error", err)
		}
	}
}

// stagingName returns a hidden, unique sibling of dst.
func stagingName(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".pgext-"+uuid.NewString())
}

// backupName returns a hidden, unique sibling of dst holding the file it
// replaces.
func backupName(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".pgext-replaced-"+uuid.NewString())
}

// copyFile copies src to dst, creating dst's directory and keeping src's mode.
func copyFile(fsys afero.Fs, srcPath, dstPath string) error {
	info, err := fsys.Stat(srcPath)
	if err != nil {
		return err
	}

	if mkErr := fsys.MkdirAll(filepath.Dir(dstPath), 0o755); mkErr != nil {
		return mkErr
	}

	in, err := fsys.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
