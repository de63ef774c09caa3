package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// ToolRequirement describes an external tool the pipeline invokes.
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "gcc", "pg_config").
	Name string

	// Alternatives are alternative tool names that can satisfy this requirement.
	Alternatives []string

	// Optional tools are reported but never fail a check.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// ToolStatus is the outcome of looking up one requirement.
type ToolStatus struct {
	Requirement ToolRequirement
	// Found is the name that satisfied the requirement, empty if none did.
	Found string
	// Path is the resolved executable path.
	Path string
}

// OK reports whether the requirement is satisfied or optional.
func (s ToolStatus) OK() bool {
	return s.Found != "" || s.Requirement.Optional
}

// RequiredTools lists the tools a build needs.
func RequiredTools(compiler, pgConfig string) []ToolRequirement {
	if compiler == "" {
		compiler = DefaultCompiler
	}
	if pgConfig == "" {
		pgConfig = DefaultPgConfig
	}
	return []ToolRequirement{
		{Name: compiler, Purpose: "C compiler and linker"},
		{Name: pgConfig, Purpose: "PostgreSQL installation layout"},
	}
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := lookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// LookupTools resolves every requirement, trying alternatives in order.
func LookupTools(requirements []ToolRequirement) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(requirements))
	for _, req := range requirements {
		status := ToolStatus{Requirement: req}
		for _, name := range append([]string{req.Name}, req.Alternatives...) {
			if path, err := lookPath(name); err == nil {
				status.Found = name
				status.Path = path
				break
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// CheckRequiredTools verifies all required tools are available. It returns
// one error naming every missing required tool.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, status := range LookupTools(requirements) {
		if status.OK() {
			continue
		}
		req := status.Requirement
		if req.Purpose != "" {
			missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missingTools = append(missingTools, req.Name)
		}
	}

	switch len(missingTools) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	default:
		return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
	}
}

// LayoutCheck is the answer to one pg_config query.
type LayoutCheck struct {
	Flag string
	Dir  string
	Err  error
}

// CheckLayout queries every flag the pipeline needs and reports each answer.
// It never stops early.
func CheckLayout(ctx context.Context, p HostLayoutProvider) []LayoutCheck {
	flags := []string{FlagIncludeDirServer, FlagPkgLibDir, FlagShareDir}
	checks := make([]LayoutCheck, 0, len(flags))
	for _, flag := range flags {
		dir, err := p.Query(ctx, flag)
		checks = append(checks, LayoutCheck{Flag: flag, Dir: dir, Err: err})
	}
	return checks
}
