// Package control renders and parses PostgreSQL extension control files.
package control

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgext/pkg/core"
)

// Descriptor is the content of a <name>.control file.
type Descriptor struct {
	Name           string `json:"name" yaml:"name"`
	Comment        string `json:"comment" yaml:"comment"`
	DefaultVersion string `json:"default_version" yaml:"default_version"`
	ModulePathname string `json:"module_pathname" yaml:"module_pathname"`
	Relocatable    bool   `json:"relocatable" yaml:"relocatable"`
}

// ForExtension builds the descriptor written for ext. The module is always
// loaded from $libdir and the extension is always relocatable.
func ForExtension(ext core.Extension) Descriptor {
	return Descriptor{
		Name:           ext.Name,
		Comment:        ext.Description,
		DefaultVersion: ext.Version,
		ModulePathname: "$libdir/" + ext.Name,
		Relocatable:    true,
	}
}

// Extension returns the identity recorded in the descriptor.
func (d Descriptor) Extension() core.Extension {
	return core.Extension{Name: d.Name, Description: d.Comment, Version: d.DefaultVersion}
}

// Render returns the control file text for ext.
func Render(ext core.Extension) []byte {
	return ForExtension(ext).Render()
}

// Render returns the control file text.
func (d Descriptor) Render() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s extension\n", d.Name)
	fmt.Fprintf(&b, "comment = %s\n", quote(d.Comment))
	fmt.Fprintf(&b, "default_version = %s\n", quote(d.DefaultVersion))
	fmt.Fprintf(&b, "module_pathname = %s\n", quote(d.ModulePathname))
	fmt.Fprintf(&b, "relocatable=%t\n", d.Relocatable)
	return b.Bytes()
}

// Parse reads control file text. The extension name comes from the leading
// "# <name> extension" comment when present. Unknown keys are ignored.
func Parse(data []byte) (Descriptor, error) {
	var d Descriptor
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if d.Name == "" {
				if name, ok := strings.CutSuffix(strings.TrimSpace(line[1:]), " extension"); ok {
					d.Name = strings.TrimSpace(name)
				}
			}
			continue
		}

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return Descriptor{}, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		key = strings.TrimSpace(key)
		value, err := unquote(strings.TrimSpace(raw))
		if err != nil {
			return Descriptor{}, fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}

		switch key {
		case "comment":
			d.Comment = value
		case "default_version":
			d.DefaultVersion = value
		case "module_pathname":
			d.ModulePathname = value
		case "relocatable":
			d.Relocatable = parseBool(value)
		}
	}
	if err := sc.Err(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// quote wraps s in single quotes, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// unquote reverses quote. Bare values are returned as they are.
func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, "'") {
		return s, nil
	}
	if len(s) < 2 || !strings.HasSuffix(s, "'") {
		return "", fmt.Errorf("unterminated quoted value %s", s)
	}
	inner := s[1 : len(s)-1]
	if strings.Count(strings.ReplaceAll(inner, "''", ""), "'") != 0 {
		return "", fmt.Errorf("unescaped quote in %s", s)
	}
	return strings.ReplaceAll(inner, "''", "'"), nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "on", "yes", "1":
		return true
	default:
		return false
	}
}
