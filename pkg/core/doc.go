// Package core defines the shared language of pgext.
//
// This package contains:
//   - Domain entities (Extension, Declaration, HostLayout, BuildArtifacts)
//   - The pipeline error taxonomy (Error, Kind)
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
