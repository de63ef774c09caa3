// Package state records build history in a SQLite database.
package state

import "time"

// BuildStatus is the outcome of a build.
type BuildStatus string

// Build statuses.
const (
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// Build is one recorded pipeline run. Stage names the failed pipeline stage
// and is empty on success.
type Build struct {
	ID         string        `json:"id" yaml:"id"`
	ProjectDir string        `json:"project_dir" yaml:"project_dir"`
	Extension  string        `json:"extension,omitempty" yaml:"extension,omitempty"`
	Version    string        `json:"version,omitempty" yaml:"version,omitempty"`
	Status     BuildStatus   `json:"status" yaml:"status"`
	Stage      string        `json:"stage,omitempty" yaml:"stage,omitempty"`
	Functions  int           `json:"functions" yaml:"functions"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// DefaultPath is the history database location relative to a project.
const DefaultPath = "target/.pgext/history.db"
