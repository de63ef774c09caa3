package commands

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/pgext/internal/cli/output"
	"github.com/leapstack-labs/pgext/pkg/toolchain"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// DoctorOutput is the structured output of the doctor command.
type DoctorOutput struct {
	Tools   []ToolCheck   `json:"tools" yaml:"tools"`
	Layout  []LayoutCheck `json:"layout" yaml:"layout"`
	Healthy bool          `json:"healthy" yaml:"healthy"`
}

// ToolCheck is one external tool lookup.
type ToolCheck struct {
	Name    string `json:"name" yaml:"name"`
	Purpose string `json:"purpose" yaml:"purpose"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Status  string `json:"status" yaml:"status"`
}

// LayoutCheck is one pg_config answer.
type LayoutCheck struct {
	Flag   string `json:"flag" yaml:"flag"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Status string `json:"status" yaml:"status"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the build toolchain",
		Long: `Check that the C compiler and pg_config are on PATH and that pg_config
answers every directory query a build makes.`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	provider := &toolchain.PgConfig{Path: cfg.PgConfig, Runner: toolchain.ExecRunner{}, Logger: cmdCtx.Logger}
	out := buildDoctorOutput(
		toolchain.LookupTools(toolchain.RequiredTools(cfg.Compiler, cfg.PgConfig)),
		toolchain.CheckLayout(cmd.Context(), provider),
	)

	r := cmdCtx.Renderer
	if r.IsStructured() {
		if err := r.Structured(out); err != nil {
			return err
		}
	} else {
		renderDoctorText(r, out)
	}

	if !out.Healthy {
		return fmt.Errorf("toolchain is not ready")
	}
	return nil
}

func buildDoctorOutput(tools []toolchain.ToolStatus, layout []toolchain.LayoutCheck) *DoctorOutput {
	out := &DoctorOutput{Healthy: true}

	for _, s := range tools {
		check := ToolCheck{Name: s.Requirement.Name, Purpose: s.Requirement.Purpose, Path: s.Path, Status: StatusPass}
		switch {
		case s.Found == "" && s.Requirement.Optional:
			check.Status = StatusWarn
		case s.Found == "":
			check.Status = StatusError
			out.Healthy = false
		}
		out.Tools = append(out.Tools, check)
	}

	for _, l := range layout {
		check := LayoutCheck{Flag: l.Flag, Dir: l.Dir, Status: StatusPass}
		if l.Err != nil {
			check.Error = l.Err.Error()
			check.Status = StatusError
			out.Healthy = false
		}
		out.Layout = append(out.Layout, check)
	}
	return out
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	title := cases.Title(language.English)

	r.Header("Tools")
	rows := make([][]string, 0, len(out.Tools))
	for _, c := range out.Tools {
		rows = append(rows, []string{c.Name, c.Purpose, orDash(c.Path), statusLabel(r, title.String(c.Status))})
	}
	r.Table([]string{"Tool", "Purpose", "Path", "Status"}, rows)
	r.Println("")

	r.Header("pg_config")
	rows = rows[:0]
	for _, c := range out.Layout {
		detail := c.Dir
		if c.Error != "" {
			detail = c.Error
		}
		rows = append(rows, []string{c.Flag, detail, statusLabel(r, title.String(c.Status))})
	}
	r.Table([]string{"Flag", "Directory", "Status"}, rows)
	r.Println("")

	if out.Healthy {
		r.Success("Toolchain ready")
	}
}

func statusLabel(r *output.Renderer, label string) string {
	styles := r.Styles()
	switch label {
	case "Pass":
		return styles.Success.Render(label)
	case "Warn":
		return styles.Warning.Render(label)
	default:
		return styles.Error.Render(label)
	}
}
