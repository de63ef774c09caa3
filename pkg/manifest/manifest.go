// Package manifest reads an extension's identity from the project manifest.
//
// The manifest is a Cargo.toml (or an equivalent YAML document) whose
// [package] table carries string name, description and version fields.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/spf13/afero"
)

// DefaultFile is the manifest file name looked up at the project root.
const DefaultFile = "Cargo.toml"

// packageTable is the manifest table holding the identity fields.
const packageTable = "package"

// requiredKeys lists the identity fields in the order they are checked.
var requiredKeys = []string{"name", "description", "version"}

// Read parses the manifest at path and returns the extension identity.
// It has no side effects.
func Read(fsys afero.Fs, path string) (core.Extension, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return core.Extension{}, core.Wrap(core.ManifestUnreadable, path, err)
	}

	parser, err := ParserFor(path)
	if err != nil {
		return core.Extension{}, core.Wrap(core.ManifestMalformed, path, err)
	}

	ext, err := Decode(data, parser)
	if err != nil {
		var e *core.Error
		if errors.As(err, &e) {
			e.Path = path
		}
		return core.Extension{}, err
	}
	return ext, nil
}

// ParserFor picks the koanf parser for a manifest by file extension.
// Files without a recognised extension are read as TOML.
func ParserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml", "":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", ext)
	}
}

// Decode extracts the identity from raw manifest bytes.
func Decode(data []byte, parser koanf.Parser) (core.Extension, error) {
	doc, err := parser.Unmarshal(data)
	if err != nil {
		return core.Extension{}, core.Wrap(core.ManifestMalformed, "", err)
	}

	pkg, ok := doc[packageTable].(map[string]interface{})
	if !ok {
		if _, present := doc[packageTable]; present {
			return core.Extension{}, core.Errorf(core.ManifestIncomplete, "", "%s is not a table", packageTable)
		}
		return core.Extension{}, core.Errorf(core.ManifestIncomplete, "", "missing [%s] table", packageTable)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(pkg, ""), nil); err != nil {
		return core.Extension{}, core.Wrap(core.ManifestMalformed, "", err)
	}

	values := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		if !k.Exists(key) {
			return core.Extension{}, core.Errorf(core.ManifestIncomplete, "", "missing %s.%s", packageTable, key)
		}
		s, ok := k.Get(key).(string)
		if !ok {
			return core.Extension{}, core.Errorf(core.ManifestIncomplete, "", "%s.%s is not a string", packageTable, key)
		}
		if s == "" {
			return core.Extension{}, core.Errorf(core.ManifestIncomplete, "", "%s.%s is empty", packageTable, key)
		}
		values[key] = s
	}

	ext := core.Extension{
		Name:        values["name"],
		Description: values["description"],
		Version:     values["version"],
	}
	if err := ext.Validate(); err != nil {
		return core.Extension{}, core.Wrap(core.ManifestMalformed, "", err)
	}
	return ext, nil
}
