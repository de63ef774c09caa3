package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/pgext/internal/state"
	"github.com/leapstack-labs/pgext/pkg/adapters/postgres"
	"github.com/leapstack-labs/pgext/pkg/core"
)

// RunOptions tunes a single build.
type RunOptions struct {
	// ExtraLinkFlags are appended to the link command, split on spaces.
	ExtraLinkFlags string
}

// Result describes a completed build.
type Result struct {
	ID         string              `json:"run_id" yaml:"run_id"`
	Extension  core.Extension      `json:"extension" yaml:"extension"`
	SQLPath    string              `json:"sql_path" yaml:"sql_path"`
	Functions  []string            `json:"functions" yaml:"functions"`
	Duplicates []string            `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Artifacts  core.BuildArtifacts `json:"artifacts" yaml:"artifacts"`
	Deployment core.Deployment     `json:"deployment" yaml:"deployment"`
	Installed  *postgres.Status    `json:"installed,omitempty" yaml:"installed,omitempty"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	Duration   time.Duration       `json:"duration" yaml:"duration"`
}

// Run builds and deploys the project in dir: manifest, scan, generate,
// write, compile, link, deploy and, when an installer is configured,
// CREATE EXTENSION.
func (e *Engine) Run(ctx context.Context, dir string, opts RunOptions) (*Result, error) {
	res := &Result{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := e.logger.With(slog.String("run_id", res.ID))
	logger.Debug("starting build", "dir", dir)

	p, stage, err := e.run(ctx, dir, opts, res, logger)
	res.Duration = time.Since(res.StartedAt)
	e.record(ctx, dir, p, res, stage, err, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("build complete",
		"name", res.Extension.Name,
		"version", res.Extension.Version,
		"functions", len(res.Functions),
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// run executes the stages in order. It returns the discovered project, or
// nil, and the failed stage's name alongside its error.
func (e *Engine) run(ctx context.Context, dir string, opts RunOptions, res *Result, logger *slog.Logger) (*Project, string, error) {
	p, err := e.Discover(dir)
	if err != nil {
		return nil, stageOf(err, StageDiscover), err
	}
	res.Extension = p.Extension
	res.SQLPath = p.SQLPath

	a, err := e.Analyze(p)
	if err != nil {
		return p, stageOf(err, core.ScanFailed.Stage()), err
	}
	res.Functions = core.DeclarationNames(a.Declarations)
	res.Duplicates = a.Duplicates

	d := e.driver(p, logger)
	res.Artifacts = d.Paths.Artifacts
	deployment, err := d.Build(ctx, p.SQLPath, a.Source, opts.ExtraLinkFlags)
	if err != nil {
		stage := stageOf(err, "build")
		logger.Error("build failed", "stage", stage, "error", err)
		return p, stage, err
	}
	res.Deployment = deployment

	if e.installer != nil {
		status, err := e.installer.CreateExtension(ctx, p.Extension)
		if err != nil {
			return p, StageCreateExtension, fmt.Errorf("extension deployed but not created: %w", err)
		}
		res.Installed = &status
	}
	return p, "", nil
}

// record stores the run in the history. A failure to record is logged and
// does not change the run's outcome.
func (e *Engine) record(ctx context.Context, dir string, p *Project, res *Result, stage string, runErr error, logger *slog.Logger) {
	// the run's own cancellation must not prevent recording its failure
	ctx = context.WithoutCancel(ctx)
	history := e.historyFor(ctx, p, logger)
	if history == nil {
		return
	}

	projectDir := ProjectDir(dir)
	if p != nil {
		projectDir = p.Dir
	}

	b := state.Build{
		ID:         res.ID,
		ProjectDir: projectDir,
		Extension:  res.Extension.Name,
		Version:    res.Extension.Version,
		Status:     state.BuildSucceeded,
		Functions:  len(res.Functions),
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
	}
	if runErr != nil {
		b.Status = state.BuildFailed
		b.Stage = stage
		b.Error = runErr.Error()
	}

	if err := history.RecordBuild(ctx, b); err != nil {
		logger.Warn("failed to record build", "error", err)
	}
}

// Stages outside the classified pipeline error kinds.
const (
	StageDiscover        = "discover"
	StageCreateExtension = "create_extension"
)

// stageOf names the stage of a classified error, or fallback.
func stageOf(err error, fallback string) string {
	if kind := core.KindOf(err); kind != "" {
		return kind.Stage()
	}
	return fallback
}
