// Package mindmap holds the in-memory mind-map tree and turns outlines and
// case records into it.
package mindmap

import (
	"encoding/json"
	"slices"
)

// Marker is a symbolic tag drawn next to a topic.
type Marker string

const (
	MarkerPriority1 Marker = "priority-1"
	MarkerPriority2 Marker = "priority-2"
	MarkerPriority3 Marker = "priority-3"
	MarkerPriority4 Marker = "priority-4"
	MarkerTaskDone  Marker = "task-done"
)

// StructureLogicRight is the logic chart layout growing to the right.
const StructureLogicRight = "org.xmind.ui.logic.right"

// PriorityMarker returns the marker for priority p. Values outside 1..4
// fall back to priority 2.
func PriorityMarker(p int) Marker {
	switch p {
	case 1:
		return MarkerPriority1
	case 3:
		return MarkerPriority3
	case 4:
		return MarkerPriority4
	}
	return MarkerPriority2
}

// Node is one mind-map topic.
type Node struct {
	ID        string
	Title     string
	Children  []*Node
	Notes     string
	Markers   []Marker
	Labels    []string
	Structure string

	// Extra holds attributes owned by the workbook serializer that this
	// package does not model. They survive a load/save cycle untouched.
	Extra map[string]json.RawMessage
}

// NewNode returns a topic with the logic-right layout hint.
func NewNode(title string) *Node {
	return &Node{Title: title, Structure: StructureLogicRight}
}

// AddChild creates a child topic, appends it and returns it.
func (n *Node) AddChild(title string) *Node {
	c := NewNode(title)
	n.Children = append(n.Children, c)
	return c
}

// AddMarker attaches m unless it is already present.
func (n *Node) AddMarker(m Marker) {
	if !n.HasMarker(m) {
		n.Markers = append(n.Markers, m)
	}
}

// HasMarker reports whether m is attached.
func (n *Node) HasMarker(m Marker) bool {
	return slices.Contains(n.Markers, m)
}

// AddLabel attaches label unless it is already present.
func (n *Node) AddLabel(label string) {
	if !slices.Contains(n.Labels, label) {
		n.Labels = append(n.Labels, label)
	}
}

// Child returns the first direct child titled title.
func (n *Node) Child(title string) *Node {
	for _, c := range n.Children {
		if c.Title == title {
			return c
		}
	}
	return nil
}

// RemoveChildren detaches every child.
func (n *Node) RemoveChildren() {
	n.Children = nil
}

// FindPath follows path from root, matching titles segment by segment. The
// first segment must equal root's own title. It returns nil when any
// segment is missing.
func FindPath(root *Node, path []string) *Node {
	if root == nil || len(path) == 0 || root.Title != path[0] {
		return nil
	}
	cur := root
	for _, seg := range path[1:] {
		if cur = cur.Child(seg); cur == nil {
			return nil
		}
	}
	return cur
}

// Count returns the number of topics in the subtree rooted at n.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}
