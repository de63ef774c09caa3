// Package cli provides the command-line interface for pgext.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/pgext/internal/cli/commands"
	"github.com/leapstack-labs/pgext/internal/cli/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command. Run without a
// subcommand it builds the project, like "pgext build".
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgext [PATH]",
		Short: "pgext - PostgreSQL extension packager",
		Long: `pgext turns a native library project into an installable PostgreSQL
extension: it registers every LANGUAGE c function declared in the project's
SQL file, compiles and links the shared library with the C toolchain, and
deploys the library, install script and control file where the server
expects them.`,
		Version: Version,
		Args:    cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			dir := "."
			if len(args) > 0 && args[0] != "" {
				dir = args[0]
			}

			cfg, err := config.LoadConfig(cfgFile, dir, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := cfg.NewLogger(cmd.ErrOrStderr())
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					logger.Debug("using config file", "path", configFile)
				}
			}
			return nil
		},
		RunE:          commands.RunBuild,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: <PATH>/pgext.yaml)")
	flags.String("extra", "", `Extra linker flags, space separated (e.g. "-lm -lssl")`)
	flags.String("manifest", "", "Manifest path relative to the project (default Cargo.toml)")
	flags.String("sql-dir", "", "Directory holding the SQL definition file (default sql)")
	flags.String("profile", "", "Build profile under target/ (default release)")
	flags.String("build-subdir", "", "Output directory under target/<profile> (default postgres)")
	flags.String("pg-config", "", "pg_config executable (default pg_config)")
	flags.String("compiler", "", "C compiler driver (default gcc)")
	flags.Bool("atomic-deploy", true, "Stage artifacts and rename them into place together")
	flags.Bool("dedupe", false, "Register each function name once even if declared repeatedly")
	flags.Duration("timeout", 0, "Limit for each pg_config or compiler run (0 = none)")
	flags.String("dsn", "", "PostgreSQL connection string for --create-extension")
	flags.Bool("create-extension", false, "Run CREATE EXTENSION IF NOT EXISTS after deploying")
	flags.Bool("history", true, "Record builds in the project's history database")
	flags.String("history-file", "", "History database path relative to the project (default target/.pgext/history.db)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("log-format", "", "Log format (text|json)")
	flags.StringP("output", "o", "", "Output format (auto|text|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.LogFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewControlCommand())
	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pgext.

To load completions:

Bash:
  $ source <(pgext completion bash)

Zsh:
  $ pgext completion zsh > "${fpath[1]}/_pgext"

Fish:
  $ pgext completion fish | source

PowerShell:
  PS> pgext completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
