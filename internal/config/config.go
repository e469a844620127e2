// Package config loads the nantrunner YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "nantrunner.yaml"

// Config represents the application configuration
type Config struct {
	Script    ScriptConfig  `yaml:"script"`
	Runner    RunnerConfig  `yaml:"runner"`
	Logging   LoggingConfig `yaml:"logging"`
	Daemon    DaemonConfig  `yaml:"daemon"`
	History   HistoryConfig `yaml:"history"`
	Notify    NotifyConfig  `yaml:"notify"`
	Schedules []Schedule    `yaml:"schedules,omitempty"`
}

// ScriptConfig selects the build script and how it is loaded.
type ScriptConfig struct {
	File            string   `yaml:"file,omitempty"` // Discovered under SearchRoot when empty
	ResolveIncludes bool     `yaml:"resolve_includes"`
	SearchRoot      string   `yaml:"search_root,omitempty"`
	Patterns        []string `yaml:"patterns,omitempty"`
}

// RunnerConfig describes the external build tool invocation.
type RunnerConfig struct {
	Command       string            `yaml:"command"`
	Arguments     []string          `yaml:"arguments"` // text/template with .File, .Target, .Dir
	Verbose       bool              `yaml:"verbose"`
	ClearOutput   bool              `yaml:"clear_output"`
	CaptureStderr bool              `yaml:"capture_stderr"`
	Env           map[string]string `yaml:"env,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// DaemonConfig configures `nantrunner serve`.
type DaemonConfig struct {
	Listen         string        `yaml:"listen"`
	MaxConnections int           `yaml:"max_connections"` // 0 = unlimited
	Watch          bool          `yaml:"watch"`
	Debounce       time.Duration `yaml:"debounce"`
	ConsoleLines   int           `yaml:"console_lines"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NotifyConfig configures run completion publishing. Disabled when NATSURL is empty.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`

	// Initial connection attempts; the client reconnects on its own afterwards.
	ConnectRetries    int              `yaml:"connect_retries,omitempty"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty"` // fixed|linear|exponential (default linear)
	RetryInitialDelay time.Duration    `yaml:"retry_initial_delay,omitempty"`
	RetryMaxDelay     time.Duration    `yaml:"retry_max_delay,omitempty"`
}

// Schedule runs a target periodically, either on a cron expression or a fixed interval.
type Schedule struct {
	Name     string        `yaml:"name"`
	Target   string        `yaml:"target"`
	Cron     string        `yaml:"cron,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rerrors.ConfigNotFound(configPath)
		}
		return nil, rerrors.ConfigInvalid(configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, rerrors.ConfigInvalid(configPath, err)
	}
	return cfg, nil
}

// LoadOrDefault loads configPath, falling back to defaults when configPath is
// empty and DefaultPath does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			loadEnvFiles()
			cfg := Default()
			return cfg, ValidateConfig(cfg)
		}
		configPath = DefaultPath
	}
	return Load(configPath)
}

// Parse decodes YAML content after environment expansion, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Example returns the configuration written by Init.
func Example() *Config {
	cfg := Default()
	cfg.Script.File = "default.build"
	cfg.Runner.Env = map[string]string{"NANT_OPTS": "-nologo"}
	cfg.Schedules = []Schedule{
		{Name: "nightly", Target: "build", Cron: "0 2 * * *"},
		{Name: "smoke", Target: "test", Interval: 15 * time.Minute},
	}
	return cfg
}
