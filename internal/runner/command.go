package runner

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

// Default command settings.
const (
	DefaultCommand = "nant"
)

// DefaultArguments passes the script and the target to NAnt.
var DefaultArguments = []string{"-buildfile:{{.File}}", "{{.Target}}"}

// Config controls how the build tool is invoked.
type Config struct {
	// Command is the executable, looked up in PATH when not absolute.
	Command string
	// Arguments are text/template strings expanded with CommandData.
	// Arguments expanding to an empty string are dropped.
	Arguments []string
	// Verbose forwards every output line to the console.
	Verbose bool
	// ClearOutput clears the console when a run starts.
	ClearOutput bool
	// CaptureStderr merges standard error into the streamed output.
	CaptureStderr bool
	// Env is appended to the inherited environment.
	Env map[string]string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Command:       DefaultCommand,
		Arguments:     append([]string(nil), DefaultArguments...),
		Verbose:       true,
		CaptureStderr: true,
	}
}

// CommandData is the template context of argument templates.
type CommandData struct {
	File   string
	Target string
	Dir    string
}

// Args expands the argument templates for file and target.
func (c Config) Args(file, target string) ([]string, error) {
	data := CommandData{File: file, Target: target, Dir: filepath.Dir(file)}
	args := make([]string, 0, len(c.Arguments))
	for i, raw := range c.Arguments {
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d %q: %w", i, raw, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("argument %d %q: %w", i, raw, err)
		}
		if arg := buf.String(); strings.TrimSpace(arg) != "" {
			args = append(args, arg)
		}
	}
	return args, nil
}

// CommandLine renders the command with expanded arguments for display.
func (c Config) CommandLine(file, target string) string {
	args, err := c.Args(file, target)
	if err != nil {
		return c.Command
	}
	return strings.Join(append([]string{c.Command}, args...), " ")
}

func (c Config) environ(base []string) []string {
	if len(c.Env) == 0 {
		return base
	}
	env := append([]string(nil), base...)
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	return env
}
