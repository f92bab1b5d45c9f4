// Package outline builds a generic heading/list tree from plain-text
// outlines using an explicit stack of open nodes.
package outline

import (
	"fmt"

	"github.com/dgallion1/casemap/internal/doctree"
	"github.com/dgallion1/casemap/internal/lines"
)

// Builder consumes classified lines in order and grows a forest.
type Builder struct {
	roots []*doctree.Node
	stack []*doctree.Node
}

// Add feeds one classified line into the tree.
func (b *Builder) Add(l lines.Line) {
	switch l.Kind {
	case lines.Heading:
		b.addHeading(l)
	case lines.Bullet:
		b.addListItem(l)
	case lines.Continuation:
		b.addContinuation(l)
	}
}

// Roots returns the top-level nodes built so far.
func (b *Builder) Roots() []*doctree.Node {
	return b.roots
}

func (b *Builder) addHeading(l lines.Line) {
	// A heading closes every open node at its level or deeper, including
	// list content nested under those nodes.
	for len(b.stack) > 0 && b.top().Level >= l.Level {
		b.pop()
	}
	n := &doctree.Node{Title: l.Text, Level: l.Level, Kind: doctree.KindHeading}
	b.attach(n)
	b.stack = append(b.stack, n)
}

func (b *Builder) addListItem(l lines.Line) {
	for len(b.stack) > 0 {
		top := b.top()
		if top.Kind == doctree.KindHeading || top.Indent < l.Indent {
			break
		}
		// Equal or deeper indent: the open item is a sibling or a nephew.
		b.pop()
	}

	depth := lines.Depth(l.Indent)
	level := 1 + depth
	if top := b.top(); top != nil {
		if top.Kind == doctree.KindHeading {
			level = top.Level + 1 + depth
		} else {
			level = top.Level + 1
		}
	}

	n := &doctree.Node{Title: l.Text, Level: level, Kind: doctree.KindListItem, Indent: l.Indent}
	b.attach(n)
	b.stack = append(b.stack, n)
}

// addContinuation attaches indented body text as a leaf. Text indented
// exactly like the preceding list item closes that item and becomes its
// sibling.
func (b *Builder) addContinuation(l lines.Line) {
	if len(b.stack) == 0 {
		return
	}
	for len(b.stack) > 0 && b.top().Indent >= l.Indent {
		b.pop()
	}

	level := 1 + lines.Depth(l.Indent)
	if top := b.top(); top != nil {
		level = top.Level + 1
	}
	b.attach(&doctree.Node{Title: l.Text, Level: level, Kind: doctree.KindContinuation, Indent: l.Indent})
}

func (b *Builder) attach(n *doctree.Node) {
	if top := b.top(); top != nil {
		top.Children = append(top.Children, n)
		return
	}
	b.roots = append(b.roots, n)
}

func (b *Builder) top() *doctree.Node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Builder) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

// Build runs a full pass over ls and returns the resulting forest.
func Build(ls []lines.Line) []*doctree.Node {
	var b Builder
	for _, l := range ls {
		b.Add(l)
	}
	return b.Roots()
}

// Parse builds an outline tree from text. It returns doctree.ErrNoContent
// when nothing in the text contributes a node.
func Parse(text, title string) (*doctree.Tree, error) {
	roots := Build(lines.Split(text))
	if len(roots) == 0 {
		return nil, fmt.Errorf("outline %q: %w", title, doctree.ErrNoContent)
	}
	return &doctree.Tree{Title: title, Children: roots}, nil
}
