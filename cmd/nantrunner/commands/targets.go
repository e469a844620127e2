package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/nantrunner/internal/catalog"
	"git.home.luguber.info/inful/nantrunner/internal/config"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/script"
)

// TargetsCmd implements the 'targets' command.
type TargetsCmd struct {
	Script string `arg:"" optional:"" help:"Build script (discovered when omitted)" type:"path"`
	All    bool   `short:"a" help:"Include private targets (those without a description)"`
	Lines  bool   `short:"l" help:"Show the line each target is declared on"`
	Format string `short:"f" help:"Output format" enum:"text,json,markdown" default:"text"`
}

func (t *TargetsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	result, err := loadScript(cfg, t.Script, g)
	if err != nil {
		return err
	}

	switch t.Format {
	case "json":
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Tree.Root); err != nil {
			return rerrors.InternalError("failed to encode tree", err)
		}
		return nil
	case "markdown":
		_, err := g.Out.Write(catalog.Markdown(result.Tree))
		return err
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	writeTargets(tw, result.Tree.PublicTargets(), t.Lines)
	if t.All {
		writeTargets(tw, result.Tree.PrivateTargets(), t.Lines)
	}
	return tw.Flush()
}

func writeTargets(tw *tabwriter.Writer, targets []*script.Node, lines bool) {
	for _, n := range targets {
		if lines {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", n.Attr(script.AttrName), n.Line, n.Attr(script.AttrDescription))
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", n.Attr(script.AttrName), n.Attr(script.AttrDescription))
		}
	}
}

// loadScript resolves and loads the build script; skipped includes are
// only logged. An empty document is reported as nothing loaded.
func loadScript(cfg *config.Config, explicit string, g *Global) (*script.LoadResult, error) {
	file, err := resolveScript(cfg, explicit, g.Logger)
	if err != nil {
		return nil, err
	}
	result, err := script.Load(file, script.LoadOptions{ResolveIncludes: cfg.Script.ResolveIncludes, Logger: g.Logger})
	if err != nil {
		return nil, err
	}
	if result.Tree == nil {
		return nil, rerrors.NoScriptLoaded().WithContext("file", file)
	}
	return result, nil
}
