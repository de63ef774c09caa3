package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/leapstack-labs/pgext/internal/cli/output"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/leapstack-labs/pgext/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	Limit  int
	All    bool
	Latest bool
}

// HistoryOutput is the structured output of the history command.
type HistoryOutput struct {
	Database string        `json:"database" yaml:"database"`
	Builds   []state.Build `json:"builds" yaml:"builds"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [PATH]",
		Short: "Show recorded builds of the project",
		Long: `Show builds recorded in the project's history database, newest first.
Every build is recorded unless history is disabled.`,
		Example: `  pgext history
  pgext history --limit 5 -o json
  pgext history --all
  pgext history --latest -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of builds to show (0 = all)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Include builds of every project sharing the database")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "Show only the most recent build of the project")
	cmd.MarkFlagsMutuallyExclusive("latest", "all")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	dir := projectDir(cfg, args)
	out := HistoryOutput{Database: historyPath(cfg, dir), Builds: []state.Build{}}

	if _, err := os.Stat(out.Database); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("history: %w", err)
		}
	} else {
		store, err := state.OpenStore(cmd.Context(), out.Database, cmdCtx.Logger)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		defer store.Close()

		builds, err := listHistory(cmd.Context(), store, engine.ProjectDir(dir), opts)
		if err != nil {
			return err
		}
		if builds != nil {
			out.Builds = builds
		}
	}

	if r.IsStructured() {
		return r.Structured(out)
	}
	renderHistoryText(r, out, opts.All)
	return nil
}

// buildLister reads recorded builds.
type buildLister interface {
	ListBuilds(ctx context.Context, projectDir string, limit int) ([]state.Build, error)
	LatestBuild(ctx context.Context, projectDir string) (*state.Build, error)
}

// listHistory selects the builds opts asks for.
func listHistory(ctx context.Context, store buildLister, project string, opts *HistoryOptions) ([]state.Build, error) {
	if opts.Latest {
		latest, err := store.LatestBuild(ctx, project)
		if err != nil || latest == nil {
			return nil, err
		}
		return []state.Build{*latest}, nil
	}
	if opts.All {
		project = ""
	}
	return store.ListBuilds(ctx, project, opts.Limit)
}

func renderHistoryText(r *output.Renderer, out HistoryOutput, all bool) {
	if len(out.Builds) == 0 {
		r.Println(r.Muted("No builds recorded in " + out.Database))
		return
	}

	header := []string{"Started", "Extension", "Status", "Stage", "Functions", "Duration"}
	if all {
		header = append(header, "Project")
	}
	rows := make([][]string, 0, len(out.Builds))
	for _, b := range out.Builds {
		ext := b.Extension
		if ext != "" && b.Version != "" {
			ext += " " + b.Version
		}
		row := []string{
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			orDash(ext),
			string(b.Status),
			orDash(b.Stage),
			strconv.Itoa(b.Functions),
			formatDuration(b.Duration),
		}
		if all {
			row = append(row, b.ProjectDir)
		}
		rows = append(rows, row)
	}
	r.Table(header, rows)
}
