// Package wrapper generates the C source that registers an extension's
// native functions with the PostgreSQL function manager.
package wrapper

import (
	"bytes"

	"github.com/leapstack-labs/pgext/pkg/core"
)

// Preamble declares the generated file as a loadable PostgreSQL module.
const Preamble = "#include \"postgres.h\"\n#include \"fmgr.h\"\n\nPG_MODULE_MAGIC;\n\n"

// Generate returns the wrapper source for decls: the preamble followed by
// one PG_FUNCTION_INFO_V1 line per declaration, in order. It never fails
// and the empty input yields the preamble alone.
func Generate(decls []core.Declaration) []byte {
	var buf bytes.Buffer
	buf.Grow(len(Preamble) + len(decls)*32)
	buf.WriteString(Preamble)
	for _, d := range decls {
		buf.WriteString(RegistrationLine(d.Name))
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

// RegistrationLine returns the registration macro call for one function.
func RegistrationLine(name string) string {
	return "PG_FUNCTION_INFO_V1(" + name + ");"
}

// Dedupe returns decls with repeated names removed, keeping the first
// occurrence, and the names that were dropped.
func Dedupe(decls []core.Declaration) ([]core.Declaration, []string) {
	seen := make(map[string]bool, len(decls))
	out := make([]core.Declaration, 0, len(decls))
	var dropped []string
	for _, d := range decls {
		if seen[d.Name] {
			dropped = append(dropped, d.Name)
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, dropped
}

// Duplicates returns each name that occurs more than once in decls, in the
// order of its second occurrence.
func Duplicates(decls []core.Declaration) []string {
	count := make(map[string]int, len(decls))
	var dups []string
	for _, d := range decls {
		count[d.Name]++
		if count[d.Name] == 2 {
			dups = append(dups, d.Name)
		}
	}
	return dups
}

// IsCIdentifier reports whether name can be used as a C function name:
// an ASCII letter or underscore followed by letters, digits or underscores.
func IsCIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
