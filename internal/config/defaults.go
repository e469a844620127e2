package config

import (
	"time"

	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// DefaultPatterns are the globs a build script is discovered by.
var DefaultPatterns = []string{"*.build", "*.nant", "*.xml"}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	rc := runner.DefaultConfig()
	return &Config{
		Script: ScriptConfig{
			ResolveIncludes: true,
			SearchRoot:      ".",
			Patterns:        append([]string(nil), DefaultPatterns...),
		},
		Runner: RunnerConfig{
			Command:       rc.Command,
			Arguments:     rc.Arguments,
			Verbose:       rc.Verbose,
			CaptureStderr: rc.CaptureStderr,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Daemon: DaemonConfig{
			Listen:         ":8088",
			MaxConnections: 64,
			Watch:          true,
			Debounce:       500 * time.Millisecond,
			ConsoleLines:   10000,
		},
		History: HistoryConfig{Enabled: true, Path: "nantrunner-history.db"},
		Notify:  NotifyConfig{Subject: "nantrunner.runs"},
	}
}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ScriptDefaultApplier fills script discovery settings.
type ScriptDefaultApplier struct{}

func (ScriptDefaultApplier) Domain() string { return "script" }

func (ScriptDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Script.SearchRoot == "" {
		cfg.Script.SearchRoot = "."
	}
	if len(cfg.Script.Patterns) == 0 {
		cfg.Script.Patterns = append([]string(nil), DefaultPatterns...)
	}
	return nil
}

// RunnerDefaultApplier fills the build tool invocation.
type RunnerDefaultApplier struct{}

func (RunnerDefaultApplier) Domain() string { return "runner" }

func (RunnerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Runner.Command == "" {
		cfg.Runner.Command = runner.DefaultCommand
	}
	if cfg.Runner.Arguments == nil {
		cfg.Runner.Arguments = append([]string(nil), runner.DefaultArguments...)
	}
	return nil
}

// LoggingDefaultApplier normalizes level and format.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// DaemonDefaultApplier fills serve settings.
type DaemonDefaultApplier struct{}

func (DaemonDefaultApplier) Domain() string { return "daemon" }

func (DaemonDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Daemon.Listen == "" {
		cfg.Daemon.Listen = ":8088"
	}
	if cfg.Daemon.ConsoleLines <= 0 {
		cfg.Daemon.ConsoleLines = 10000
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "nantrunner-history.db"
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "nantrunner.runs"
	}
	if mode := NormalizeRetryBackoff(string(cfg.Notify.RetryBackoff)); mode != "" {
		cfg.Notify.RetryBackoff = mode
	} else {
		cfg.Notify.RetryBackoff = RetryBackoffLinear
	}
	if cfg.Notify.RetryInitialDelay <= 0 {
		cfg.Notify.RetryInitialDelay = 500 * time.Millisecond
	}
	if cfg.Notify.RetryMaxDelay <= 0 {
		cfg.Notify.RetryMaxDelay = 10 * time.Second
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		ScriptDefaultApplier{},
		RunnerDefaultApplier{},
		LoggingDefaultApplier{},
		DaemonDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// RunnerOptions converts the runner section into executor settings.
func (c *Config) RunnerOptions() runner.Config {
	return runner.Config{
		Command:       c.Runner.Command,
		Arguments:     append([]string(nil), c.Runner.Arguments...),
		Verbose:       c.Runner.Verbose,
		ClearOutput:   c.Runner.ClearOutput,
		CaptureStderr: c.Runner.CaptureStderr,
		Env:           c.Runner.Env,
	}
}
