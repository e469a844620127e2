package script

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

var folder = cases.Lower(language.Und)

// frame is one open element on the parse stack.
type frame struct {
	node *Node
	raw  xml.Name
}

// Parse reads the script at path and returns its root Node.
//
// A document without any element yields (nil, nil). Unreadable files and
// documents that are not well-formed yield a parse error.
func Parse(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerrors.ParseError(path, err)
	}
	defer func() { _ = f.Close() }()
	return ParseReader(f, path)
}

// ParseReader parses a script from r. path is recorded on the root's
// synthetic file attribute and in errors.
func ParseReader(r io.Reader, path string) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []frame
	)
	for {
		// The previous token ends right before the next '<', so this is the
		// line of the opening tag for a start element.
		line, _ := dec.InputPos()

		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerrors.ParseError(path, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, rerrors.ParseError(path, fmt.Errorf("line %d: element <%s> after document root", line, qualified(t.Name)))
			}
			node := newNode(folder.String(t.Name.Local), line)
			for _, a := range t.Attr {
				if err := node.addAttr(qualified(a.Name), a.Value); err != nil {
					return nil, rerrors.ParseError(path, err)
				}
			}
			if len(stack) == 0 {
				root = node
			} else {
				stack[len(stack)-1].node.appendChild(node)
			}
			stack = append(stack, frame{node: node, raw: t.Name})

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, rerrors.ParseError(path, fmt.Errorf("line %d: unexpected end element </%s>", line, qualified(t.Name)))
			}
			top := stack[len(stack)-1]
			if top.raw != t.Name {
				return nil, rerrors.ParseError(path, fmt.Errorf("line %d: element <%s> closed by </%s>", line, qualified(top.raw), qualified(t.Name)))
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 || len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			top := stack[len(stack)-1].node
			top.Text += string(t)
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, rerrors.ParseError(path, fmt.Errorf("unexpected end of file: <%s> opened on line %d is not closed", qualified(open.raw), open.node.Line))
	}
	if root == nil {
		return nil, nil
	}
	root.setAttr(AttrFile, path)
	return root, nil
}

// qualified renders a raw (prefix, local) name as written in the document.
func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
