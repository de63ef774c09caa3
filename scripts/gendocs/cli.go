package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pgext/internal/cli"
	"github.com/leapstack-labs/pgext/internal/cli/config"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/leapstack-labs/pgext/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// kindSummaries explains each error kind on the reference page.
var kindSummaries = map[core.Kind]string{
	core.ManifestUnreadable:    "Cargo.toml is missing or cannot be read",
	core.ManifestMalformed:     "Cargo.toml is not valid TOML",
	core.ManifestIncomplete:    "the [package] table lacks name, description or version",
	core.ScanFailed:            "the SQL file cannot be read or tokenized, or declares a name that is not a C identifier",
	core.MetadataWriteFailed:   "the install script or control file cannot be written",
	core.SourceWriteFailed:     "the generated wrapper source cannot be written",
	core.HostConfigUnavailable: "pg_config is missing or did not report a directory",
	core.CompileFailed:         "the C compiler rejected the wrapper source",
	core.LinkFailed:            "the shared library could not be linked",
	core.DeployFailed:          "an artifact could not be copied into the server directories",
}

// generateCLIDocs writes index.md and one page per visible command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := writePage(outDir, "index", cliIndex(root)); err != nil {
		return err
	}
	for _, cmd := range visibleCommands(root) {
		if err := writePage(outDir, cmd.Name(), commandPage(cmd)); err != nil {
			return err
		}
	}
	return nil
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	path := filepath.Join(outDir, name+".md")
	if err := os.WriteFile(path, w.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("  Generated %s.md", name)
	return nil
}

func visibleCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || !cmd.IsAvailableCommand() || cmd.Name() == "help" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func cliIndex(root *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Building and deploying PostgreSQL extensions with pgext")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("A pgext project is a directory holding " + InlineCode("Cargo.toml") +
		" and exactly one SQL file under " + InlineCode("sql/") + ". Each run reads the manifest, " +
		"registers every " + InlineCode("LANGUAGE c") + " function declared in the SQL file, " +
		"compiles and links the shared library, and copies the library, install script and " +
		"control file into the directories " + InlineCode("pg_config") + " reports.")
	w.CodeBlock("bash", "pgext [PATH]              # same as pgext build [PATH]\npgext <command> [PATH] [options]")

	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Header(2, "Commands")
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))
	w.Paragraph("Flags override " + InlineCode(config.EnvPrefix+"*") + " environment variables, which override " +
		InlineCode(config.ConfigFileNames[0]) + " in the project directory.")

	w.Header(2, "Failure Stages")
	w.Paragraph("pgext exits with status 0 when the run succeeds and 1 otherwise. " +
		"The first line of the error names the stage that failed and the error kind, and compiler " +
		"or linker diagnostics follow verbatim. The same stage is stored with failed runs in the build history.")
	w.Table([]string{"Stage", "Kind", "Cause"}, failureRows())
	return w
}

// failureRows lists every stage a run can stop at, in pipeline order.
func failureRows() [][]string {
	rows := [][]string{{InlineCode(engine.StageDiscover), "", "the project has no SQL directory, or it holds no SQL file or several"}}
	for _, kind := range core.Kinds() {
		rows = append(rows, []string{InlineCode(kind.Stage()), InlineCode(string(kind)), kindSummaries[kind]})
	}
	return append(rows, []string{InlineCode(engine.StageCreateExtension), "",
		"the server rejected " + InlineCode("CREATE EXTENSION") + " when " + InlineCode("--create-extension") + " is set"})
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, "pgext "+cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	usage := cmd.UseLine()
	if cmd.HasAvailableSubCommands() {
		usage = cmd.CommandPath() + " <subcommand>"
	}
	w.CodeBlock("bash", usage)

	if len(cmd.Aliases) > 0 {
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.Paragraph("Aliases: " + strings.Join(aliases, ", "))
	}

	if cmd.HasAvailableSubCommands() {
		var rows [][]string
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				rows = append(rows, []string{InlineCode(sub.Name()), cleanDescription(sub.Short)})
			}
		}
		w.Header(2, "Subcommands")
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if rows := flagRows(cmd.LocalNonPersistentFlags()); len(rows) > 0 {
		w.Header(2, "Options")
		w.Table(flagHeaders, rows)
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Paragraph("Global options are listed in the [CLI reference](/cli/).")
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w
}

var flagHeaders = []string{"Flag", "Default", "Description"}

func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		def := f.DefValue
		if def != "" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{name, def, cleanDescription(f.Usage)})
	})
	return rows
}

// dedent strips the indentation shared by every non-blank line of s.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	var prefix string
	seen := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !seen {
			prefix, seen = indent, true
			continue
		}
		n := 0
		for n < len(prefix) && n < len(indent) && prefix[n] == indent[n] {
			n++
		}
		prefix = prefix[:n]
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
