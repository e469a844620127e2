// Package catalog renders a human-readable catalog of a build script's targets.
package catalog

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/nantrunner/internal/script"
)

// Markdown renders the classified views of tree as a Markdown document.
func Markdown(tree *script.Tree) []byte {
	var b bytes.Buffer
	if tree == nil {
		b.WriteString("# No build script loaded\n")
		return b.Bytes()
	}

	fmt.Fprintf(&b, "# Build script `%s`\n\n", filepath.Base(tree.File()))
	if project := tree.Root.Attr(script.AttrName); project != "" {
		fmt.Fprintf(&b, "Project **%s**", escapeInline(project))
		if def := tree.Root.Attr("default"); def != "" {
			fmt.Fprintf(&b, ", default target `%s`", def)
		}
		b.WriteString(".\n\n")
	}

	public := tree.PublicTargets()
	b.WriteString("## Public targets\n\n")
	if len(public) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		b.WriteString("| Target | Description | Depends | Line |\n|---|---|---|---|\n")
		for _, t := range public {
			fmt.Fprintf(&b, "| `%s` | %s | %s | %d |\n",
				cell(t.Attr(script.AttrName)), cell(t.Attr(script.AttrDescription)), cell(t.Attr("depends")), t.Line)
		}
		b.WriteString("\n")
	}

	private := tree.PrivateTargets()
	b.WriteString("## Private targets\n\n")
	if len(private) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		for _, t := range private {
			fmt.Fprintf(&b, "- `%s` (line %d)\n", t.Attr(script.AttrName), t.Line)
		}
		b.WriteString("\n")
	}

	if props := tree.Properties(); len(props) > 0 {
		b.WriteString("## Properties\n\n| Element | Name | Value | Line |\n|---|---|---|---|\n")
		for _, p := range props {
			fmt.Fprintf(&b, "| %s | %s | %s | %d |\n",
				cell(p.Name), cell(p.Attr(script.AttrName)), cell(p.Attr("value")), p.Line)
		}
		b.WriteString("\n")
	}

	if includes := tree.Includes(); len(includes) > 0 {
		b.WriteString("## Includes\n\n")
		for _, inc := range includes {
			fmt.Fprintf(&b, "- `%s` (line %d)\n", inc.Attr(script.AttrBuildFile), inc.Line)
		}
	}
	return b.Bytes()
}

// cell escapes a value for a GFM table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func escapeInline(s string) string {
	r := strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`")
	return r.Replace(s)
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders Markdown(tree) to a standalone HTML page.
func HTML(tree *script.Tree) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(Markdown(tree), &body); err != nil {
		return nil, fmt.Errorf("failed to render catalog: %w", err)
	}

	title := "nantrunner"
	if tree != nil {
		title = "nantrunner: " + filepath.Base(tree.File())
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
