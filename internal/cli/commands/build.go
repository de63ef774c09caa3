package commands

import (
	"fmt"

	"github.com/leapstack-labs/pgext/internal/cli/output"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/spf13/cobra"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build [PATH]",
		Short: "Build and deploy the extension",
		Long: `Build the PostgreSQL extension in PATH (default: current directory) and
deploy it into the installation reported by pg_config.

The SQL file in sql/ is scanned for LANGUAGE c functions, a C wrapper
registering them is generated, compiled against the server headers and
linked with target/<profile>/lib<name>.a into a shared library. The library,
install script and control file are then copied into pkglibdir and
sharedir/extension.`,
		Example: `  # Build the project in the current directory
  pgext build

  # Pass extra linker flags
  pgext build ./myext --extra "-lm -lssl"

  # Build, then CREATE EXTENSION in a database
  pgext build --dsn postgres://localhost/dev --create-extension`,
		Args: cobra.MaximumNArgs(1),
		RunE: RunBuild,
	}
}

// RunBuild builds the project named by args. The root command runs it too.
func RunBuild(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	dir := projectDir(cfg, args)
	eng, cleanup, err := newEngine(cmd.Context(), cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.Run(cmd.Context(), dir, engine.RunOptions{ExtraLinkFlags: cfg.ExtraLinkFlags})
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsStructured() {
		return r.Structured(res)
	}
	renderBuildText(r, res)
	return nil
}

func renderBuildText(r *output.Renderer, res *engine.Result) {
	styles := r.Styles()
	for _, name := range res.Duplicates {
		r.Warning(fmt.Sprintf("function %s is declared more than once", name))
	}

	r.Success(fmt.Sprintf("Built %s %s with %d native function(s) in %s",
		styles.Bold.Render(res.Extension.Name), res.Extension.Version, len(res.Functions), formatDuration(res.Duration)))
	r.KeyValue("library", styles.Path.Render(res.Deployment.SharedLibrary))
	r.KeyValue("script", styles.Path.Render(res.Deployment.Script))
	r.KeyValue("control", styles.Path.Render(res.Deployment.Descriptor))

	if res.Installed != nil {
		if res.Installed.Created {
			r.Success(fmt.Sprintf("Created extension %s %s", res.Extension.Name, res.Installed.InstalledVersion))
		} else {
			r.Println(r.Muted(fmt.Sprintf("Extension %s %s already installed", res.Extension.Name, res.Installed.InstalledVersion)))
		}
		return
	}
	r.Println(CreateExtensionHint(res.Extension.Name))
}

// CreateExtensionHint is the instruction printed after a deploy.
func CreateExtensionHint(name string) string {
	return fmt.Sprintf("Execute \"CREATE EXTENSION %s;\" in your database to access the extension.", name)
}
