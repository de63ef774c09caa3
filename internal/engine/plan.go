package engine

import (
	"context"

	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/leapstack-labs/pgext/pkg/toolchain"
)

// Plan is what a build of a project would do.
type Plan struct {
	Extension    core.Extension      `json:"extension" yaml:"extension"`
	SQLPath      string              `json:"sql_path" yaml:"sql_path"`
	Declarations []core.Declaration  `json:"-" yaml:"-"`
	Functions    []string            `json:"functions" yaml:"functions"`
	Duplicates   []string            `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Layout       core.HostLayout     `json:"layout" yaml:"layout"`
	Artifacts    core.BuildArtifacts `json:"artifacts" yaml:"artifacts"`
	Deployment   core.Deployment     `json:"deployment" yaml:"deployment"`
	Commands     [][]string          `json:"commands" yaml:"commands"`
}

// Plan resolves everything a build of dir needs without writing files or
// running the compiler. Only the host layout provider is queried.
func (e *Engine) Plan(ctx context.Context, dir string, opts RunOptions) (*Plan, error) {
	p, err := e.Discover(dir)
	if err != nil {
		return nil, err
	}
	a, err := e.Analyze(p)
	if err != nil {
		return nil, err
	}
	layout, err := toolchain.ResolveLayout(ctx, e.layout)
	if err != nil {
		return nil, err
	}

	paths := e.paths(p)
	compile := append([]string{e.compiler}, paths.CompileArgs(p.Extension, layout.IncludeDirServer)...)
	link := append([]string{e.compiler}, paths.LinkArgs(opts.ExtraLinkFlags)...)

	return &Plan{
		Extension:    p.Extension,
		SQLPath:      p.SQLPath,
		Declarations: a.Declarations,
		Functions:    core.DeclarationNames(a.Declarations),
		Duplicates:   a.Duplicates,
		Layout:       layout,
		Artifacts:    paths.Artifacts,
		Deployment:   toolchain.DeploymentFor(p.Extension, layout),
		Commands:     [][]string{compile, link},
	}, nil
}
