package commands

import (
	"fmt"

	"git.home.luguber.info/inful/nantrunner/internal/discovery"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	Root string `arg:"" optional:"" help:"Directory to search (defaults to the configured search root)" type:"path"`
}

func (d *DiscoverCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	dir := d.Root
	if dir == "" {
		dir = cfg.Script.SearchRoot
	}

	searchRoot, err := discovery.SearchRoot(dir)
	if err != nil {
		return rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityError, "failed to resolve search root")
	}
	files, err := discovery.FindBuildFiles(searchRoot, cfg.Script.Patterns)
	if err != nil {
		return rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityError, "failed to search for build scripts").
			WithContext("root", searchRoot)
	}

	fmt.Fprintf(g.Out, "Search root: %s\n", searchRoot)
	if rev, ok := discovery.CurrentRevision(searchRoot); ok {
		if rev.Branch != "" {
			fmt.Fprintf(g.Out, "Revision: %s (%s)\n", rev.Short(), rev.Branch)
		} else {
			fmt.Fprintf(g.Out, "Revision: %s\n", rev.Short())
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(g.Out, "No build scripts found")
		return nil
	}

	def := discovery.DefaultBuildFile(files)
	for _, f := range files {
		marker := " "
		if f == def {
			marker = "*"
		}
		fmt.Fprintf(g.Out, "%s %s\n", marker, displayPath(f))
	}
	return nil
}
