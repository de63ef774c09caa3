package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure. Every kind is terminal for a run.
type Kind string

// Pipeline error kinds, grouped by the stage that raises them.
const (
	// Manifest Reader
	ManifestUnreadable Kind = "ManifestUnreadable"
	ManifestMalformed  Kind = "ManifestMalformed"
	ManifestIncomplete Kind = "ManifestIncomplete"

	// Declaration Scanner
	ScanFailed Kind = "ScanFailed"

	// Toolchain Driver
	MetadataWriteFailed   Kind = "MetadataWriteFailed"
	SourceWriteFailed     Kind = "SourceWriteFailed"
	HostConfigUnavailable Kind = "HostConfigUnavailable"
	CompileFailed         Kind = "CompileFailed"
	LinkFailed            Kind = "LinkFailed"
	DeployFailed          Kind = "DeployFailed"
)

// Kinds returns every error kind in pipeline order.
func Kinds() []Kind {
	return []Kind{
		ManifestUnreadable, ManifestMalformed, ManifestIncomplete,
		ScanFailed,
		MetadataWriteFailed, SourceWriteFailed,
		HostConfigUnavailable,
		CompileFailed,
		LinkFailed,
		DeployFailed,
	}
}

// Stage returns the pipeline stage a kind belongs to.
func (k Kind) Stage() string {
	switch k {
	case ManifestUnreadable, ManifestMalformed, ManifestIncomplete:
		return "manifest"
	case ScanFailed:
		return "scan"
	case MetadataWriteFailed, SourceWriteFailed:
		return "write"
	case HostConfigUnavailable:
		return "pg_config"
	case CompileFailed:
		return "compile"
	case LinkFailed:
		return "link"
	case DeployFailed:
		return "deploy"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. Path names the offending file or
// artifact, Command the external invocation, and Output the diagnostic text
// the tool printed, kept verbatim.
type Error struct {
	Kind    Kind
	Path    string
	Command []string
	Output  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Stage())
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if len(e.Command) > 0 {
		fmt.Fprintf(&b, " running %q", strings.Join(e.Command, " "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Output != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(e.Output, "\n"))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error of the given kind wrapping a formatted cause.
func Errorf(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// Wrap builds an Error of the given kind around err.
func Wrap(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the kind of the first Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
