package commands

import (
	"strings"

	"github.com/leapstack-labs/pgext/internal/cli/output"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [PATH]",
		Short: "Show what a build would do without doing it",
		Long: `Resolve the extension identity, its native functions, the build artifacts,
the deployment targets and the exact compiler commands. pg_config is
queried but nothing is written and the compiler is not run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg := cmdCtx.Cfg
			eng := engine.New(engineConfig(cfg, cmdCtx.Logger))

			plan, err := eng.Plan(cmd.Context(), projectDir(cfg, args), engine.RunOptions{ExtraLinkFlags: cfg.ExtraLinkFlags})
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.IsStructured() {
				return r.Structured(plan)
			}
			renderPlanText(r, plan)
			return nil
		},
	}
}

func renderPlanText(r *output.Renderer, plan *engine.Plan) {
	styles := r.Styles()

	r.Header("Extension")
	r.KeyValue("name", plan.Extension.Name)
	r.KeyValue("version", plan.Extension.Version)
	r.KeyValue("description", plan.Extension.Description)
	r.KeyValue("sql", styles.Path.Render(plan.SQLPath))
	r.Println("")

	r.Header("Functions")
	if len(plan.Functions) == 0 {
		r.Println(r.Muted("  (none)"))
	}
	for _, name := range plan.Functions {
		r.Println("  " + name)
	}
	for _, name := range plan.Duplicates {
		r.Warning("function " + name + " is declared more than once")
	}
	r.Println("")

	r.Header("Deployment")
	r.Table([]string{"Artifact", "Built", "Installed"}, [][]string{
		{"library", plan.Artifacts.SharedLibraryPath, plan.Deployment.SharedLibrary},
		{"script", plan.Artifacts.ScriptPath, plan.Deployment.Script},
		{"control", plan.Artifacts.DescriptorPath, plan.Deployment.Descriptor},
	})
	r.Println("")

	r.Header("Commands")
	for _, argv := range plan.Commands {
		r.Println("  " + styles.Muted.Render("$") + " " + strings.TrimSpace(joinCommand(argv)))
	}
}
