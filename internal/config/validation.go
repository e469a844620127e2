package config

import (
	"fmt"
	"time"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

// MinScheduleInterval bounds interval schedules.
const MinScheduleInterval = time.Second

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateRunner(); err != nil {
		return err
	}
	if err := cv.validateDaemon(); err != nil {
		return err
	}
	if err := cv.validateNotify(); err != nil {
		return err
	}
	return cv.validateSchedules()
}

func (cv *configurationValidator) validateRunner() error {
	r := cv.config.Runner
	if r.Command == "" {
		return rerrors.ValidationFailed("runner.command", "must not be empty")
	}
	if _, err := cv.config.RunnerOptions().Args("default.build", "target"); err != nil {
		return rerrors.ValidationFailed("runner.arguments", err.Error())
	}
	return nil
}

func (cv *configurationValidator) validateDaemon() error {
	d := cv.config.Daemon
	if d.MaxConnections < 0 {
		return rerrors.ValidationFailed("daemon.max_connections", "must not be negative")
	}
	if d.Debounce < 0 {
		return rerrors.ValidationFailed("daemon.debounce", "must not be negative")
	}
	if cv.config.History.Enabled && cv.config.History.Path == "" {
		return rerrors.ValidationFailed("history.path", "required when history is enabled")
	}
	return nil
}

func (cv *configurationValidator) validateNotify() error {
	if cv.config.Notify.NATSURL != "" && cv.config.Notify.Subject == "" {
		return rerrors.ValidationFailed("notify.subject", "required when nats_url is set")
	}
	if cv.config.Notify.ConnectRetries < 0 {
		return rerrors.ValidationFailed("notify.connect_retries", "cannot be negative")
	}
	return nil
}

func (cv *configurationValidator) validateSchedules() error {
	names := make(map[string]bool)
	for i, s := range cv.config.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if s.Name == "" {
			return rerrors.ValidationFailed(field+".name", "must not be empty")
		}
		if names[s.Name] {
			return rerrors.ValidationFailed(field+".name", "duplicate schedule name: "+s.Name)
		}
		names[s.Name] = true
		if s.Target == "" {
			return rerrors.ValidationFailed(field+".target", "must not be empty")
		}
		switch {
		case s.Cron != "" && s.Interval != 0:
			return rerrors.ValidationFailed(field, "cron and interval are mutually exclusive")
		case s.Cron == "" && s.Interval == 0:
			return rerrors.ValidationFailed(field, "one of cron or interval is required")
		case s.Cron == "" && s.Interval < MinScheduleInterval:
			return rerrors.ValidationFailed(field+".interval", fmt.Sprintf("must be at least %s", MinScheduleInterval))
		}
	}
	return nil
}
