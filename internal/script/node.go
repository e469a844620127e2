package script

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Attr is one attribute of a Node, kept in document order.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is one parsed XML element.
//
// Nodes are only appended to while their element is open during a parse or
// include-resolution pass and must be treated as read-only afterwards.
type Node struct {
	// Name is the element's local name, lowercased.
	Name string
	// Text is the non-whitespace character data found directly in the element.
	Text string
	// Line is the 1-based line of the opening tag.
	Line int
	// Children are owned exclusively by this node.
	Children []*Node

	attrs []Attr
	index map[string]int
}

func newNode(name string, line int) *Node {
	return &Node{Name: name, Line: line}
}

// addAttr appends an attribute, rejecting a name already present on the node.
func (n *Node) addAttr(name, value string) error {
	if _, exists := n.index[name]; exists {
		return fmt.Errorf("line %d: duplicate attribute %q on <%s>", n.Line, name, n.Name)
	}
	n.setAttr(name, value)
	return nil
}

// setAttr adds or replaces an attribute. A replaced attribute keeps its position.
func (n *Node) setAttr(name, value string) {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, exists := n.index[name]; exists {
		n.attrs[i].Value = value
		return
	}
	n.index[name] = len(n.attrs)
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

func (n *Node) appendChild(child *Node) {
	n.Children = append(n.Children, child)
}

func (n *Node) appendChildren(children []*Node) {
	n.Children = append(n.Children, children...)
}

// Attr returns the value of the named attribute or "" when it is absent.
func (n *Node) Attr(name string) string {
	v, _ := n.Lookup(name)
	return v
}

// Lookup returns the value of the named attribute and whether it exists.
func (n *Node) Lookup(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	i, ok := n.index[name]
	if !ok {
		return "", false
	}
	return n.attrs[i].Value, true
}

// HasAttr reports whether the named attribute exists, even if empty.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Lookup(name)
	return ok
}

// Attrs returns a copy of the attributes in document order.
func (n *Node) Attrs() []Attr {
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// String pretty-prints the node and its descendants, one element per line,
// indented three spaces per level.
func (n *Node) String() string {
	type item struct {
		node  *Node
		level int
	}
	var b strings.Builder
	stack := []item{{node: n}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b.WriteString(strings.Repeat("   ", it.level))
		b.WriteString(it.node.Name)
		for _, a := range it.node.attrs {
			b.WriteString(" ")
			b.WriteString(a.Name)
			b.WriteString("=")
			b.WriteString(a.Value)
		}
		b.WriteString("\n")

		for i := len(it.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: it.node.Children[i], level: it.level + 1})
		}
	}
	return b.String()
}

type nodeJSON struct {
	Name       string  `json:"name"`
	Text       string  `json:"text,omitempty"`
	Line       int     `json:"line"`
	Attributes []Attr  `json:"attributes"`
	Children   []*Node `json:"children,omitempty"`
}

// MarshalJSON renders the node with its attributes in document order.
func (n *Node) MarshalJSON() ([]byte, error) {
	attrs := n.attrs
	if attrs == nil {
		attrs = []Attr{}
	}
	return json.Marshal(nodeJSON{
		Name:       n.Name,
		Text:       n.Text,
		Line:       n.Line,
		Attributes: attrs,
		Children:   n.Children,
	})
}
