// Package commands implements the nantrunner command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nantrunner/internal/config"
	"git.home.luguber.info/inful/nantrunner/internal/discovery"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	// Out receives command output and build console lines.
	Out io.Writer
}

// NewGlobal returns a Global writing to stdout.
func NewGlobal() *Global {
	return &Global{Logger: slog.Default(), Out: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (nantrunner.yaml is used when present)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Targets  TargetsCmd  `cmd:"" help:"List the targets of a build script"`
	Run      RunCmd      `cmd:"" help:"Run one target with the configured build tool"`
	Discover DiscoverCmd `cmd:"" help:"Find build scripts under a search root"`
	Catalog  CatalogCmd  `cmd:"" help:"Render a Markdown or HTML catalog of a build script"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Serve    ServeCmd    `cmd:"" help:"Serve the HTTP API, schedules and script watching"`
	History  HistoryCmd  `cmd:"" help:"Show recent runs from the history store"`
}

// AfterApply runs after flag parsing; sets up logging from flags alone so
// configuration errors are reported through it.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	setLogger(g, level, config.LogFormatText)
	return nil
}

// loadConfig loads the configuration and reapplies its logging settings.
// --verbose wins over the configured level.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	setLogger(g, level, cfg.Logging.Format)
	return cfg, nil
}

func setLogger(g *Global, level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	g.Logger = slog.New(handler)
	slog.SetDefault(g.Logger)
}

// resolveScript picks the build script: an explicit path, then the
// configured file, then discovery under the configured search root.
func resolveScript(cfg *config.Config, explicit string, logger *slog.Logger) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if cfg.Script.File != "" {
		return cfg.Script.File, nil
	}

	root, err := discovery.SearchRoot(cfg.Script.SearchRoot)
	if err != nil {
		return "", rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityError, "failed to resolve search root")
	}
	file, err := discovery.Find(root, cfg.Script.Patterns)
	if err != nil {
		return "", rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityError, "failed to search for build scripts").
			WithContext("root", root)
	}
	if file == "" {
		return "", rerrors.ValidationFailed("script.file", fmt.Sprintf("no build script found under %s", root))
	}
	logger.Debug("Discovered build script", logfields.File(file), logfields.Path(root))
	return file, nil
}

// displayPath shortens path relative to the working directory when possible.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// ExitCodeError ends the process with Code after printing Reason.
type ExitCodeError struct {
	Code   int
	Reason string
}

func (e *ExitCodeError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("exit code %d", e.Code)
}
