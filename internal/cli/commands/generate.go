package commands

import (
	"github.com/leapstack-labs/pgext/pkg/control"
	"github.com/spf13/cobra"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [PATH]",
		Short: "Print the generated C wrapper source",
		Long: `Print the C source that registers every LANGUAGE c function with
PG_FUNCTION_INFO_V1. Nothing is written to disk.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, _, a, err := analyzeProject(cmd, args)
			if err != nil {
				return err
			}
			_, err = cmdCtx.Renderer.Writer().Write(a.Source)
			return err
		},
	}
}

// NewControlCommand creates the control command.
func NewControlCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "control [PATH]",
		Short: "Print the extension's .control file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, p, _, err := analyzeProject(cmd, args)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			if r.IsStructured() {
				return r.Structured(control.ForExtension(p.Extension))
			}
			_, err = r.Writer().Write(control.Render(p.Extension))
			return err
		},
	}
}
