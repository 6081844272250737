// Package markup parses untrusted SVG text into an arena-backed tree and
// serializes trees back to markup.
//
// Nodes live in a single slice owned by the Tree and refer to each other by
// NodeID. A node is appended exactly once, under exactly one parent, so the
// structure is always a tree. Removing a node detaches its handle from the
// parent; the detached subtree is simply never visited again.
package markup

import "strings"

// NodeID is a handle into a Tree. None is the zero handle.
type NodeID int

// None refers to no node.
const None NodeID = -1

type NodeKind uint8

const (
	ElementNode NodeKind = iota + 1
	TextNode
)

// Attr is a single attribute. Prefix is empty for unqualified names.
type Attr struct {
	Prefix string
	Local  string
	Value  string
}

// Name returns the attribute name as written, e.g. "xlink:href".
func (a Attr) Name() string {
	return qualify(a.Prefix, a.Local)
}

// Node is an element or a text node.
type Node struct {
	Kind     NodeKind
	Prefix   string
	Local    string
	Attrs    []Attr
	Children []NodeID
	Text     string
	Parent   NodeID
}

// Name returns the element name as written, e.g. "svg" or "svg:rect".
func (n *Node) Name() string {
	return qualify(n.Prefix, n.Local)
}

// Tree is the arena holding every node of one parsed document.
type Tree struct {
	nodes []Node
}

// Node returns the node behind id. It panics on an invalid handle.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Len returns the number of nodes ever allocated in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// NewElement allocates a detached element.
func (t *Tree) NewElement(prefix, local string, attrs []Attr) NodeID {
	t.nodes = append(t.nodes, Node{Kind: ElementNode, Prefix: prefix, Local: local, Attrs: attrs, Parent: None})
	return NodeID(len(t.nodes) - 1)
}

// NewText allocates a detached text node.
func (t *Tree) NewText(text string) NodeID {
	t.nodes = append(t.nodes, Node{Kind: TextNode, Text: text, Parent: None})
	return NodeID(len(t.nodes) - 1)
}

// AppendChild attaches a detached child to parent.
func (t *Tree) AppendChild(parent, child NodeID) {
	if t.nodes[child].Parent != None {
		panic("markup: node already has a parent")
	}
	t.nodes[child].Parent = parent
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
}

// RemoveChildren detaches every child of parent for which drop returns true,
// preserving the order of the rest.
func (t *Tree) RemoveChildren(parent NodeID, drop func(NodeID) bool) {
	p := &t.nodes[parent]
	kept := p.Children[:0]
	for _, c := range p.Children {
		if drop(c) {
			t.nodes[c].Parent = None
			continue
		}
		kept = append(kept, c)
	}
	p.Children = kept
}

// Attr returns the value of the attribute with the given qualified name,
// compared case-insensitively.
func (t *Tree) Attr(id NodeID, name string) (string, bool) {
	for _, a := range t.nodes[id].Attrs {
		if strings.EqualFold(a.Name(), name) {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first element in document order below and including id
// for which match returns true.
func (t *Tree) Find(id NodeID, match func(*Node) bool) NodeID {
	n := &t.nodes[id]
	if n.Kind != ElementNode {
		return None
	}
	if match(n) {
		return id
	}
	for _, c := range n.Children {
		if found := t.Find(c, match); found != None {
			return found
		}
	}
	return None
}

// TextContent concatenates the text nodes directly below id.
func (t *Tree) TextContent(id NodeID) string {
	var b strings.Builder
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Kind == TextNode {
			b.WriteString(t.nodes[c].Text)
		}
	}
	return b.String()
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
