package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	"git.home.luguber.info/inful/nantrunner/internal/controller"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// exitInterrupted is the conventional status of a process ended by SIGINT.
const exitInterrupted = 130

// RunCmd implements the 'run' command.
type RunCmd struct {
	Target string `arg:"" help:"Target to run"`
	Script string `short:"f" name:"file" help:"Build script (discovered when omitted)" type:"path"`
	Quiet  bool   `short:"q" help:"Do not echo build tool output"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := openServices(ctx, cfg, g.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := cfg.RunnerOptions()
	if r.Quiet {
		opts.Verbose = false
	}
	exec := runner.NewExecutor(opts, console.NewWriter(g.Out), svc.executorOptions()...)
	ctrl := controller.New(exec, controller.Options{ResolveIncludes: cfg.Script.ResolveIncludes, Logger: g.Logger})

	file, err := resolveScript(cfg, r.Script, g.Logger)
	if err != nil {
		return err
	}
	if _, err := ctrl.LoadFile(file); err != nil {
		return err
	}

	run, err := ctrl.StartTarget(r.Target)
	if err != nil {
		return err
	}
	select {
	case <-run.Done():
	case <-ctx.Done():
		g.Logger.Info("Interrupt received, stopping target", logfields.Target(r.Target))
		ctrl.StopTarget()
		<-run.Done()
	}

	c, _ := run.Completion()
	return completionError(c)
}

// completionError maps how a run ended to the command's result.
func completionError(c runner.Completion) error {
	switch {
	case c.State == runner.StateCancelled:
		return &ExitCodeError{Code: exitInterrupted, Reason: fmt.Sprintf("target %q aborted", c.Target)}
	case c.Err != nil:
		if _, ok := rerrors.As(c.Err); ok {
			return c.Err
		}
		return rerrors.ProcessLaunchError("", c.Err)
	case c.ExitCode != 0:
		return &ExitCodeError{Code: c.ExitCode, Reason: fmt.Sprintf("target %q failed with exit code %d", c.Target, c.ExitCode)}
	}
	return nil
}
