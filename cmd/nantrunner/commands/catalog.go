package commands

import (
	"os"

	"git.home.luguber.info/inful/nantrunner/internal/catalog"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
)

// CatalogCmd implements the 'catalog' command.
type CatalogCmd struct {
	Script string `arg:"" optional:"" help:"Build script (discovered when omitted)" type:"path"`
	HTML   bool   `help:"Render HTML instead of Markdown"`
	Output string `short:"o" help:"Write to this file instead of stdout" type:"path"`
}

func (c *CatalogCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	result, err := loadScript(cfg, c.Script, g)
	if err != nil {
		return err
	}

	page := catalog.Markdown(result.Tree)
	if c.HTML {
		if page, err = catalog.HTML(result.Tree); err != nil {
			return rerrors.InternalError("failed to render catalog", err)
		}
	}

	if c.Output == "" {
		_, err := g.Out.Write(page)
		return err
	}
	if err := os.WriteFile(c.Output, page, 0o644); err != nil {
		return rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityError, "failed to write catalog").
			WithContext("path", c.Output)
	}
	g.Logger.Info("Catalog written", logfields.Path(c.Output))
	return nil
}
