package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/leapstack-labs/pgext/internal/cli"
	"github.com/leapstack-labs/pgext/internal/cli/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// configKey describes one configuration key.
type configKey struct {
	Key         string
	Type        string
	Default     string
	Flag        string
	Env         string
	Description string
}

// generateConfigDocs generates the configuration reference from the
// config struct, its defaults and the flags that set each key.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "Configuration keys, defaults and their flags")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("pgext reads %s from the project directory, or the file named by %s. "+
		"Environment variables and flags override file values in that order.",
		InlineCode(config.ConfigFileNames[0]), InlineCode("--config")))

	keys := collectConfigKeys(cli.NewRootCmd())
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{InlineCode(k.Key), k.Type, k.Default, k.Flag, InlineCode(k.Env), k.Description})
	}
	w.Header(2, "Keys")
	w.Table([]string{"Key", "Type", "Default", "Flag", "Environment", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# pgext.yaml
sql_dir: sql
pg_config: /usr/lib/postgresql/16/bin/pg_config
extra_link_flags: "-lm"
command_timeout: 2m
dsn: postgres://localhost/dev
create_extension: true`)

	filename := filepath.Join(outDir, "index.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// collectConfigKeys lists every koanf key of config.Config in field order.
func collectConfigKeys(rootCmd *cobra.Command) []configKey {
	flagsByKey := make(map[string]*pflag.Flag)
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		flagsByKey[config.FlagKey(f.Name)] = f
	})

	defaults := reflect.ValueOf(config.Default()).Elem()
	typ := defaults.Type()

	var keys []configKey
	for i := range typ.NumField() {
		field := typ.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}

		k := configKey{
			Key:     key,
			Type:    field.Type.String(),
			Default: formatDefault(defaults.Field(i)),
			Env:     config.EnvPrefix + strings.ToUpper(key),
		}
		if f, ok := flagsByKey[key]; ok {
			k.Flag = InlineCode("--" + f.Name)
			k.Description = cleanDescription(f.Usage)
		}
		keys = append(keys, k)
	}
	return keys
}

func formatDefault(v reflect.Value) string {
	if v.IsZero() && v.Kind() == reflect.String {
		return ""
	}
	return InlineCode(fmt.Sprint(v.Interface()))
}
