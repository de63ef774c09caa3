package config

import (
	"fmt"
	"slices"
	"strings"
)

// Accepted values for enumerated settings.
var (
	OutputFormats = []string{"auto", "text", "json", "yaml"}
	LogFormats    = []string{"text", "json"}
)

// Validate checks enumerations, required names and the timeout.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("output must be one of %s, got %q", strings.Join(OutputFormats, ", "), c.OutputFormat)
	}
	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("log_format must be one of %s, got %q", strings.Join(LogFormats, ", "), c.LogFormat)
	}

	for _, req := range []struct{ key, value string }{
		{"manifest", c.Manifest},
		{"sql_dir", c.SQLDir},
		{"profile", c.Profile},
		{"build_subdir", c.BuildSubdir},
		{"pg_config", c.PgConfig},
		{"compiler", c.Compiler},
	} {
		if strings.TrimSpace(req.value) == "" {
			return fmt.Errorf("%s is required", req.key)
		}
	}

	if c.History && strings.TrimSpace(c.HistoryFile) == "" {
		return fmt.Errorf("history_file is required when history is enabled")
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative, got %s", c.CommandTimeout)
	}
	return nil
}
