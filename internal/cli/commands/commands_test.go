package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/pgext/internal/cli/output"
	"github.com/leapstack-labs/pgext/internal/cli/config"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/leapstack-labs/pgext/internal/state"
	"github.com/leapstack-labs/pgext/pkg/adapters/postgres"
	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/leapstack-labs/pgext/pkg/toolchain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommands(t *testing.T) {
	tests := []struct {
		cmd *cobra.Command
		use string
	}{
		{cmd: NewBuildCommand(), use: "build [PATH]"},
		{cmd: NewScanCommand(), use: "scan [PATH]"},
		{cmd: NewGenerateCommand(), use: "generate [PATH]"},
		{cmd: NewControlCommand(), use: "control [PATH]"},
		{cmd: NewPlanCommand(), use: "plan [PATH]"},
		{cmd: NewWatchCommand(), use: "watch [PATH]"},
		{cmd: NewHistoryCommand(), use: "history [PATH]"},
		{cmd: NewDoctorCommand(), use: "doctor"},
		{cmd: NewVersionCommand("1.0"), use: "version"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
		})
	}

	assert.NotNil(t, NewWatchCommand().Flags().Lookup("debounce"))
}

func TestCreateExtensionHint(t *testing.T) {
	assert.Equal(t,
		`Execute "CREATE EXTENSION demo;" in your database to access the extension.`,
		CreateExtensionHint("demo"))
}

func newBufferRenderer() (*output.Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return output.NewRendererWithTTY(out, errOut, false, output.ModeText), out, errOut
}

func TestRenderBuildText(t *testing.T) {
	res := &engine.Result{
		Extension:  core.Extension{Name: "demo", Description: "x", Version: "0.1.0"},
		Functions:  []string{"add", "add"},
		Duplicates: []string{"add"},
		Deployment: core.Deployment{
			SharedLibrary: "/pg/lib/libdemo.so",
			Script:        "/pg/share/extension/demo--0.1.0.sql",
			Descriptor:    "/pg/share/extension/demo.control",
		},
	}

	r, out, errOut := newBufferRenderer()
	renderBuildText(r, res)
	assert.Contains(t, out.String(), "Built demo 0.1.0 with 2 native function(s)")
	assert.Contains(t, out.String(), "/pg/lib/libdemo.so")
	assert.Contains(t, out.String(), CreateExtensionHint("demo"))
	assert.Contains(t, errOut.String(), "function add is declared more than once")

	res.Installed = &postgres.Status{Created: true, InstalledVersion: "0.1.0"}
	r, out, _ = newBufferRenderer()
	renderBuildText(r, res)
	assert.Contains(t, out.String(), "Created extension demo 0.1.0")
	assert.NotContains(t, out.String(), "Execute \"CREATE EXTENSION")
}

func TestBuildDoctorOutput(t *testing.T) {
	tools := []toolchain.ToolStatus{
		{Requirement: toolchain.ToolRequirement{Name: "gcc", Purpose: "C compiler and linker"}, Found: "gcc", Path: "/usr/bin/gcc"},
		{Requirement: toolchain.ToolRequirement{Name: "pg_config", Purpose: "PostgreSQL installation layout"}},
	}
	layout := []toolchain.LayoutCheck{
		{Flag: toolchain.FlagPkgLibDir, Dir: "/pg/lib"},
		{Flag: toolchain.FlagShareDir, Err: errors.New("not found")},
	}

	out := buildDoctorOutput(tools, layout)
	assert.False(t, out.Healthy)
	require.Len(t, out.Tools, 2)
	assert.Equal(t, StatusPass, out.Tools[0].Status)
	assert.Equal(t, StatusError, out.Tools[1].Status)
	require.Len(t, out.Layout, 2)
	assert.Equal(t, StatusPass, out.Layout[0].Status)
	assert.Equal(t, "not found", out.Layout[1].Error)

	r, text, _ := newBufferRenderer()
	renderDoctorText(r, out)
	assert.Contains(t, text.String(), "Pass")
	assert.Contains(t, text.String(), "Error")
	assert.NotContains(t, text.String(), "Toolchain ready")
}

func TestBuildDoctorOutput_OptionalTool(t *testing.T) {
	out := buildDoctorOutput([]toolchain.ToolStatus{
		{Requirement: toolchain.ToolRequirement{Name: "clang", Optional: true}},
	}, nil)
	assert.True(t, out.Healthy)
	assert.Equal(t, StatusWarn, out.Tools[0].Status)
}

func TestRenderPlanText(t *testing.T) {
	plan := &engine.Plan{
		Extension: core.Extension{Name: "demo", Description: "x", Version: "0.1.0"},
		SQLPath:   "/proj/sql/demo.sql",
		Functions: []string{"add"},
		Commands:  [][]string{{"gcc", "-c", "demo.c"}, {"gcc", "demo.o", "-shared"}},
	}

	r, out, _ := newBufferRenderer()
	renderPlanText(r, plan)
	assert.Contains(t, out.String(), "Extension")
	assert.Contains(t, out.String(), "  add\n")
	assert.Contains(t, out.String(), "$ gcc -c demo.c")
	assert.Contains(t, out.String(), "$ gcc demo.o -shared")
}

func TestRenderHistoryText(t *testing.T) {
	r, out, _ := newBufferRenderer()
	renderHistoryText(r, HistoryOutput{
		Database: "/proj/target/.pgext/history.db",
		Builds: []state.Build{
			{ID: "b", ProjectDir: "/proj", Extension: "demo", Version: "0.1.0", Status: state.BuildFailed, Stage: "compile", StartedAt: time.Now()},
			{ID: "a", ProjectDir: "/proj", Extension: "demo", Version: "0.1.0", Status: state.BuildSucceeded, Functions: 2, StartedAt: time.Now(), Duration: 1200 * time.Millisecond},
		},
	}, true)

	text := out.String()
	assert.Contains(t, text, "demo 0.1.0")
	assert.Contains(t, text, "failed")
	assert.Contains(t, text, "compile")
	assert.Contains(t, text, "succeeded")
	assert.Contains(t, text, "1.2s")
	assert.Contains(t, text, "/proj")
}

func TestRenderHistoryText_Empty(t *testing.T) {
	r, out, _ := newBufferRenderer()
	renderHistoryText(r, HistoryOutput{Database: "/proj/h.db"}, false)
	assert.Contains(t, out.String(), "No builds recorded in /proj/h.db")
}

func TestHistoryPath(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "/proj/target/.pgext/history.db", historyPath(cfg, "/proj"))

	cfg.HistoryFile = "/var/lib/pgext/history.db"
	assert.Equal(t, "/var/lib/pgext/history.db", historyPath(cfg, "/proj"))
}

func TestOpenHistory_Disabled(t *testing.T) {
	cfg := config.Default()
	assert.NotNil(t, openHistory(cfg, nil))

	cfg.History = false
	assert.Nil(t, openHistory(cfg, nil))
}

func TestListHistory(t *testing.T) {
	ctx := context.Background()
	store, err := state.OpenStore(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, b := range []state.Build{
		{ID: "old", ProjectDir: "/proj", Status: state.BuildFailed},
		{ID: "new", ProjectDir: "/proj", Status: state.BuildSucceeded},
		{ID: "other", ProjectDir: "/other", Status: state.BuildSucceeded},
	} {
		b.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.RecordBuild(ctx, b))
	}

	ids := func(builds []state.Build) []string {
		var out []string
		for _, b := range builds {
			out = append(out, b.ID)
		}
		return out
	}

	tests := []struct {
		name    string
		project string
		opts    HistoryOptions
		want    []string
	}{
		{name: "project", project: "/proj", want: []string{"new", "old"}},
		{name: "limit", project: "/proj", opts: HistoryOptions{Limit: 1}, want: []string{"new"}},
		{name: "all", project: "/proj", opts: HistoryOptions{All: true}, want: []string{"other", "new", "old"}},
		{name: "latest", project: "/proj", opts: HistoryOptions{Latest: true}, want: []string{"new"}},
		{name: "latest none", project: "/missing", opts: HistoryOptions{Latest: true}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builds, err := listHistory(ctx, store, tt.project, &tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(builds))
		})
	}
}

