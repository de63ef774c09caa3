package commands

import (
	"strconv"

	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/spf13/cobra"
)

// DeclarationInfo is one scanned function in structured output.
type DeclarationInfo struct {
	Name   string `json:"name" yaml:"name"`
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

// ScanOutput is the structured output of the scan command.
type ScanOutput struct {
	SQLPath      string            `json:"sql_path" yaml:"sql_path"`
	Declarations []DeclarationInfo `json:"declarations" yaml:"declarations"`
	Duplicates   []string          `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [PATH]",
		Short: "List LANGUAGE c functions declared in the SQL file",
		Example: `  pgext scan
  pgext scan ./myext -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}
}

// analyzeProject discovers and scans the project without building it.
func analyzeProject(cmd *cobra.Command, args []string) (*CommandContext, *engine.Project, *engine.Analysis, error) {
	cmdCtx := NewCommandContext(cmd)
	eng := engine.New(engineConfig(cmdCtx.Cfg, cmdCtx.Logger))

	p, err := eng.Discover(projectDir(cmdCtx.Cfg, args))
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := eng.Analyze(p)
	if err != nil {
		return nil, nil, nil, err
	}
	return cmdCtx, p, a, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cmdCtx, p, a, err := analyzeProject(cmd, args)
	if err != nil {
		return err
	}

	out := ScanOutput{
		SQLPath:      p.SQLPath,
		Declarations: make([]DeclarationInfo, 0, len(a.Declarations)),
		Duplicates:   a.Duplicates,
	}
	for _, d := range a.Declarations {
		out.Declarations = append(out.Declarations, DeclarationInfo{
			Name:   d.Name,
			Schema: d.Schema,
			Line:   d.Pos.Line,
			Column: d.Pos.Column,
		})
	}

	r := cmdCtx.Renderer
	if r.IsStructured() {
		return r.Structured(out)
	}

	if len(out.Declarations) == 0 {
		r.Println(r.Muted("No LANGUAGE c functions in " + p.SQLPath))
		return nil
	}
	rows := make([][]string, 0, len(out.Declarations))
	for i, d := range a.Declarations {
		rows = append(rows, []string{strconv.Itoa(i + 1), d.Name, orDash(d.Schema), d.Pos.String()})
	}
	r.Table([]string{"#", "Function", "Schema", "Position"}, rows)
	return nil
}
