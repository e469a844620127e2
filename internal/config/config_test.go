package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nantrunner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "script:\n  file: app.build\n"))
	require.NoError(t, err)

	assert.Equal(t, "app.build", cfg.Script.File)
	assert.True(t, cfg.Script.ResolveIncludes)
	assert.Equal(t, DefaultPatterns, cfg.Script.Patterns)
	assert.Equal(t, "nant", cfg.Runner.Command)
	assert.Equal(t, []string{"-buildfile:{{.File}}", "{{.Target}}"}, cfg.Runner.Arguments)
	assert.True(t, cfg.Runner.Verbose)
	assert.True(t, cfg.Runner.CaptureStderr)
	assert.False(t, cfg.Runner.ClearOutput)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, ":8088", cfg.Daemon.Listen)
	assert.Equal(t, 500*time.Millisecond, cfg.Daemon.Debounce)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "nantrunner.runs", cfg.Notify.Subject)
	assert.Equal(t, RetryBackoffLinear, cfg.Notify.RetryBackoff)
	assert.Equal(t, 500*time.Millisecond, cfg.Notify.RetryInitialDelay)
}

func TestLoad_FullDocument(t *testing.T) {
	t.Setenv("NANT_HOME", "/opt/nant")
	cfg, err := Load(writeConfig(t, `
script:
  file: default.build
  resolve_includes: false
  patterns: ["*.build"]
runner:
  command: ${NANT_HOME}/bin/nant
  arguments: ["-buildfile:{{.File}}", "-D:root={{.Dir}}", "{{.Target}}"]
  verbose: false
  clear_output: true
  env:
    CONFIGURATION: Release
logging:
  level: DEBUG
  format: json
daemon:
  listen: "127.0.0.1:9000"
  max_connections: 8
  watch: false
  debounce: 2s
history:
  enabled: false
notify:
  nats_url: nats://localhost:4222
  subject: builds
  connect_retries: 3
  retry_backoff: Exponential
  retry_max_delay: 4s
schedules:
  - name: nightly
    target: build
    cron: "0 2 * * *"
  - name: smoke
    target: test
    interval: 15m
`))
	require.NoError(t, err)

	assert.False(t, cfg.Script.ResolveIncludes)
	assert.Equal(t, "/opt/nant/bin/nant", cfg.Runner.Command)
	assert.False(t, cfg.Runner.Verbose)
	assert.True(t, cfg.Runner.ClearOutput)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Daemon.MaxConnections)
	assert.False(t, cfg.Daemon.Watch)
	assert.Equal(t, 2*time.Second, cfg.Daemon.Debounce)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "builds", cfg.Notify.Subject)
	assert.Equal(t, 3, cfg.Notify.ConnectRetries)
	assert.Equal(t, RetryBackoffExponential, cfg.Notify.RetryBackoff)
	assert.Equal(t, 4*time.Second, cfg.Notify.RetryMaxDelay)
	require.Len(t, cfg.Schedules, 2)
	assert.Equal(t, 15*time.Minute, cfg.Schedules[1].Interval)

	rc := cfg.RunnerOptions()
	assert.Equal(t, map[string]string{"CONFIGURATION": "Release"}, rc.Env)
	args, err := rc.Args("/src/default.build", "build")
	require.NoError(t, err)
	assert.Equal(t, []string{"-buildfile:/src/default.build", "-D:root=/src", "build"}, args)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, rerrors.IsCategory(err, rerrors.CategoryConfig))

	_, err = Load(writeConfig(t, "runner: [unclosed"))
	require.Error(t, err)
	assert.True(t, rerrors.IsCategory(err, rerrors.CategoryConfig))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad argument template", func(c *Config) { c.Runner.Arguments = []string{"{{.File"} }, "runner.arguments"},
		{"negative connections", func(c *Config) { c.Daemon.MaxConnections = -1 }, "daemon.max_connections"},
		{"history without path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"nats without subject", func(c *Config) { c.Notify = NotifyConfig{NATSURL: "nats://x"} }, "notify.subject"},
		{"negative connect retries", func(c *Config) { c.Notify.ConnectRetries = -1 }, "notify.connect_retries"},
		{"schedule without name", func(c *Config) { c.Schedules = []Schedule{{Target: "b", Cron: "* * * * *"}} }, "schedules[0].name"},
		{"schedule without target", func(c *Config) { c.Schedules = []Schedule{{Name: "n", Cron: "* * * * *"}} }, "schedules[0].target"},
		{"duplicate schedule", func(c *Config) {
			c.Schedules = []Schedule{{Name: "n", Target: "a", Cron: "* * * * *"}, {Name: "n", Target: "b", Interval: time.Minute}}
		}, "schedules[1].name"},
		{"cron and interval", func(c *Config) {
			c.Schedules = []Schedule{{Name: "n", Target: "a", Cron: "* * * * *", Interval: time.Minute}}
		}, "schedules[0]"},
		{"neither cron nor interval", func(c *Config) { c.Schedules = []Schedule{{Name: "n", Target: "a"}} }, "schedules[0]"},
		{"interval too short", func(c *Config) {
			c.Schedules = []Schedule{{Name: "n", Target: "a", Interval: time.Millisecond}}
		}, "schedules[0].interval"},
	}

	require.NoError(t, ValidateConfig(Default()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			re, ok := rerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, rerrors.CategoryValidation, re.Category)
			assert.Equal(t, tt.field, re.Context["field"])
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nantrunner.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Example().Schedules, cfg.Schedules)
	assert.Equal(t, "default.build", cfg.Script.File)
}

func TestLoadOrDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(DefaultPath, []byte("runner:\n  command: make\n"), 0o600))
	cfg, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "make", cfg.Runner.Command)
}

func TestLoadEnvFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("NANTRUNNER_TEST_CMD=from-env\nNANTRUNNER_TEST_SHARED=env\n"), 0o600))
	require.NoError(t, os.WriteFile(".env.local", []byte("NANTRUNNER_TEST_SHARED=local\n"), 0o600))
	t.Setenv("NANTRUNNER_TEST_CMD", "")
	t.Setenv("NANTRUNNER_TEST_SHARED", "")
	os.Unsetenv("NANTRUNNER_TEST_CMD")
	os.Unsetenv("NANTRUNNER_TEST_SHARED")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "nant", cfg.Runner.Command)

	require.NoError(t, os.WriteFile(DefaultPath, []byte("runner:\n  command: ${NANTRUNNER_TEST_CMD}\n"), 0o600))
	cfg, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Runner.Command)
	assert.Equal(t, "local", os.Getenv("NANTRUNNER_TEST_SHARED"))
}

func TestNormalizeLogging(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel(" Warning "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
	assert.Equal(t, "DEBUG", LogLevelDebug.SlogLevel().String())
}
