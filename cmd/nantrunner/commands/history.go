package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit  int    `short:"n" help:"Number of runs to show" default:"20"`
	Target string `short:"t" help:"Only show runs of this target"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return rerrors.ValidationFailed("history.enabled", "run history is disabled")
	}
	if h.Limit <= 0 {
		return rerrors.ValidationFailed("limit", "must be positive")
	}

	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return rerrors.Wrap(err, rerrors.CategoryHistory, rerrors.SeverityError, "failed to open history store").
			WithContext("path", cfg.History.Path)
	}
	defer func() { _ = store.Close() }()

	projection := history.NewProjection(store, 0)
	if err := projection.Rebuild(context.Background()); err != nil {
		return rerrors.Wrap(err, rerrors.CategoryHistory, rerrors.SeverityError, "failed to read history")
	}

	runs := projection.Recent(0)
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTARGET\tSTATUS\tEXIT\tDURATION\tLINES")
	shown := 0
	for _, r := range runs {
		if h.Target != "" && r.Target != h.Target {
			continue
		}
		if shown == h.Limit {
			break
		}
		shown++
		exit := "-"
		if r.Status != "running" {
			exit = fmt.Sprint(r.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.StartedAt.Local().Format(time.DateTime), r.Target, r.Status, exit, r.Duration.Round(time.Millisecond), r.Lines)
	}
	return tw.Flush()
}
