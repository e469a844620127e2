package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nantrunner/cmd/nantrunner/commands"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := commands.NewGlobal()
	parser := kong.Parse(cli,
		kong.Name("nantrunner"),
		kong.Description("Browse and run the targets of NAnt build scripts."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run()

	var exitErr *commands.ExitCodeError
	if errors.As(err, &exitErr) {
		if exitErr.Reason != "" {
			fmt.Fprintln(os.Stderr, exitErr.Reason)
		}
		os.Exit(exitErr.Code)
	}
	rerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
