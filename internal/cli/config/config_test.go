package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the persistent flags registered by the root command.
func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.String("extra", "", "extra link flags")
	flags.String("compiler", "", "compiler")
	flags.String("profile", "", "profile")
	flags.Bool("atomic-deploy", true, "atomic deploy")
	flags.Bool("dedupe", false, "dedupe")
	flags.Duration("timeout", 0, "timeout")
	flags.StringP("output", "o", "", "output")
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pgext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfg, err := LoadConfig("", t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Equal(t, "sql", cfg.SQLDir)
	assert.Equal(t, "release", cfg.Profile)
	assert.Equal(t, "postgres", cfg.BuildSubdir)
	assert.Equal(t, "pg_config", cfg.PgConfig)
	assert.Equal(t, "gcc", cfg.Compiler)
	assert.True(t, cfg.AtomicDeploy)
	assert.False(t, cfg.DedupeFunctions)
	assert.Zero(t, cfg.CommandTimeout)
	assert.True(t, cfg.History)
	assert.Equal(t, "target/.pgext/history.db", cfg.HistoryFile)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_ProjectFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, `compiler: clang
sql_dir: schema
command_timeout: 90s
atomic_deploy: false
dedupe_functions: true
extra_link_flags: -lm -lz
`)

	cfg, err := LoadConfig("", dir, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, dir, cfg.ProjectDir)
	assert.Equal(t, "clang", cfg.Compiler)
	assert.Equal(t, "schema", cfg.SQLDir)
	assert.Equal(t, 90*time.Second, cfg.CommandTimeout)
	assert.False(t, cfg.AtomicDeploy)
	assert.True(t, cfg.DedupeFunctions)
	assert.Equal(t, "-lm -lz", cfg.ExtraLinkFlags)
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	ResetConfig()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), ".", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name string
		env  string
		flag string
		want string
	}{
		{name: "file only", want: "from_file"},
		{name: "env over file", env: "from_env", want: "from_env"},
		{name: "flag over env", env: "from_env", flag: "from_flag", want: "from_flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			writeConfig(t, dir, "compiler: from_file\n")
			if tt.env != "" {
				t.Setenv("PGEXT_COMPILER", tt.env)
			}
			flags := newFlags()
			if tt.flag != "" {
				require.NoError(t, flags.Set("compiler", tt.flag))
			}

			cfg, err := LoadConfig("", dir, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Compiler)
		})
	}
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	t.Setenv("PGEXT_PROFILE", "debug")

	cfg, err := LoadConfig("", t.TempDir(), newFlags())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Profile, "env var should be used when flag is not set")
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "extra_link_flags", FlagKey("extra"))
	assert.Equal(t, "command_timeout", FlagKey("timeout"))
	assert.Equal(t, "sql_dir", FlagKey("sql-dir"))
	assert.Equal(t, "output", FlagKey("output"))
}

func TestLoadConfig_RenamedFlags(t *testing.T) {
	ResetConfig()
	flags := newFlags()
	require.NoError(t, flags.Set("extra", "-lpq"))
	require.NoError(t, flags.Set("dedupe", "true"))
	require.NoError(t, flags.Set("timeout", "2m"))
	require.NoError(t, flags.Set("atomic-deploy", "false"))

	cfg, err := LoadConfig("", t.TempDir(), flags)
	require.NoError(t, err)

	assert.Equal(t, "-lpq", cfg.ExtraLinkFlags)
	assert.True(t, cfg.DedupeFunctions)
	assert.Equal(t, 2*time.Minute, cfg.CommandTimeout)
	assert.False(t, cfg.AtomicDeploy)
}

func TestLoadConfig_EnvDuration(t *testing.T) {
	ResetConfig()
	t.Setenv("PGEXT_COMMAND_TIMEOUT", "45s")
	t.Setenv("PGEXT_CREATE_EXTENSION", "true")

	cfg, err := LoadConfig("", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.CommandTimeout)
	assert.True(t, cfg.CreateExtension)
}

func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "output: xml\n")

	_, err := LoadConfig("", dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output must be one of auto, text, json, yaml")
	assert.Nil(t, GetCurrentConfig())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "json output", mutate: func(c *Config) { c.OutputFormat = "json" }},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "markdown" }, errSubstr: "output must be one of"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "logfmt" }, errSubstr: "log_format must be one of"},
		{name: "empty compiler", mutate: func(c *Config) { c.Compiler = " " }, errSubstr: "compiler is required"},
		{name: "empty pg_config", mutate: func(c *Config) { c.PgConfig = "" }, errSubstr: "pg_config is required"},
		{name: "history without file", mutate: func(c *Config) { c.HistoryFile = "" }, errSubstr: "history_file is required"},
		{name: "history disabled without file", mutate: func(c *Config) { c.History = false; c.HistoryFile = "" }},
		{name: "negative timeout", mutate: func(c *Config) { c.CommandTimeout = -time.Second }, errSubstr: "command_timeout must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Default()
	cfg.NewLogger(&buf).Debug("hidden")
	assert.Empty(t, buf.String())

	cfg.Verbose = true
	cfg.LogFormat = "json"
	cfg.NewLogger(&buf).Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	var buf bytes.Buffer
	logger := Default().NewLogger(&buf)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
