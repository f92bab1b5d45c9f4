package doctree

import "errors"

// ErrNoContent is returned when a document yields no headings, list items
// or case records, so callers can avoid writing an empty export.
var ErrNoContent = errors.New("no recognizable content")

// Kind tags how an outline node was written in the source.
type Kind string

const (
	KindHeading      Kind = "heading"
	KindListItem     Kind = "list"
	KindContinuation Kind = "content"
)

// Tree is the root of a parsed outline.
type Tree struct {
	Title    string  // Document title (from override, heading or filename)
	Children []*Node // Top-level nodes
}

// Node is one entry of the outline.
type Node struct {
	Title    string  `json:"title"`
	Level    int     `json:"level"`  // Derived nesting depth
	Kind     Kind    `json:"kind"`
	Indent   int     `json:"indent"` // Canonical leading width, 0 for headings
	Children []*Node `json:"children,omitempty"`
}

// Count returns the number of nodes in the forest.
func (t *Tree) Count() int {
	n := 0
	Walk(t.Children, func(*Node, int) { n++ })
	return n
}

// Walk visits nodes depth-first in document order. depth is 0 for forest roots.
func Walk(nodes []*Node, fn func(n *Node, depth int)) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}
