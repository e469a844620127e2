package script

// Element and attribute names with meaning to the classification views.
const (
	TagTarget  = "target"
	TagInclude = "include"

	AttrName        = "name"
	AttrDescription = "description"
	AttrBuildFile   = "buildfile"
	AttrFile        = "file"
)

// Tree wraps a root Node and derives views over its direct children.
// Views are recomputed on every call; nested elements are never inspected.
type Tree struct {
	Root *Node
}

// NewTree wraps root. A nil root yields a nil tree ("nothing loaded").
func NewTree(root *Node) *Tree {
	if root == nil {
		return nil
	}
	return &Tree{Root: root}
}

// File returns the path the root was parsed from.
func (t *Tree) File() string {
	return t.Root.Attr(AttrFile)
}

func (t *Tree) filter(keep func(*Node) bool) []*Node {
	result := make([]*Node, 0)
	if t == nil || t.Root == nil {
		return result
	}
	for _, child := range t.Root.Children {
		if keep(child) {
			result = append(result, child)
		}
	}
	return result
}

// Includes returns children named include.
func (t *Tree) Includes() []*Node {
	return t.filter(func(n *Node) bool { return n.Name == TagInclude })
}

// Properties returns children that are neither targets nor includes.
func (t *Tree) Properties() []*Node {
	return t.filter(func(n *Node) bool { return n.Name != TagTarget && n.Name != TagInclude })
}

// PublicTargets returns targets carrying a description attribute.
func (t *Tree) PublicTargets() []*Node {
	return t.filter(func(n *Node) bool { return n.Name == TagTarget && n.HasAttr(AttrDescription) })
}

// PrivateTargets returns targets without a description attribute.
func (t *Tree) PrivateTargets() []*Node {
	return t.filter(func(n *Node) bool { return n.Name == TagTarget && !n.HasAttr(AttrDescription) })
}

// AllTargets returns every target child.
func (t *Tree) AllTargets() []*Node {
	return t.filter(func(n *Node) bool { return n.Name == TagTarget })
}

// Target returns the first target whose name attribute equals name.
func (t *Tree) Target(name string) (*Node, bool) {
	for _, n := range t.AllTargets() {
		if n.Attr(AttrName) == name {
			return n, true
		}
	}
	return nil, false
}

// TargetNames lists target names in document order.
func (t *Tree) TargetNames() []string {
	targets := t.AllTargets()
	names := make([]string, 0, len(targets))
	for _, n := range targets {
		names = append(names, n.Attr(AttrName))
	}
	return names
}
