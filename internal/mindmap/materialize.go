package mindmap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/casemap/internal/cases"
	"github.com/dgallion1/casemap/internal/doctree"
	"github.com/dgallion1/casemap/internal/naming"
)

// ErrNoRoot is returned when a root path has no usable segment.
var ErrNoRoot = errors.New("empty root path")

// NotePrefix introduces the precondition note of a case topic.
const NotePrefix = "前置条件："

// categorySegment is the index of the category among the intermediate
// segments of a case path (module, feature, category).
const categorySegment = 2

// Options tune a Materializer.
type Options struct {
	// PlainTitles strips inline Markdown from titles.
	PlainTitles bool
	// StoryLabel is attached to the node that receives the cases.
	StoryLabel string
}

// Result describes one case materialization.
type Result struct {
	Placed   int      `json:"placed"`
	Dropped  int      `json:"dropped"`
	Replaced bool     `json:"replaced"` // An existing subtree was cleared
	Target   []string `json:"target"`   // Root path the cases were placed under
}

// Materializer converts outlines and case records into mind-map trees.
// It keeps no state between calls.
type Materializer struct {
	log  *slog.Logger
	opts Options
}

// New returns a Materializer logging to log.
func New(log *slog.Logger, opts Options) *Materializer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Materializer{log: log, opts: opts}
}

// Outline creates one topic per outline node under a root titled title,
// preserving order and nesting.
func (m *Materializer) Outline(title string, tree *doctree.Tree) (*Node, error) {
	if tree == nil || len(tree.Children) == 0 {
		return nil, fmt.Errorf("materialize outline: %w", doctree.ErrNoContent)
	}
	if title == "" {
		title = tree.Title
	}
	root := NewNode(m.title(title))
	var add func(parent *Node, nodes []*doctree.Node)
	add = func(parent *Node, nodes []*doctree.Node) {
		for _, n := range nodes {
			add(parent.AddChild(m.title(n.Title)), n.Children)
		}
	}
	add(root, tree.Children)
	return root, nil
}

// Cases builds a fresh tree for records under rootPath.
func (m *Materializer) Cases(rootPath string, records []cases.Record) (*Node, Result, error) {
	return m.Merge(nil, rootPath, records)
}

// Merge places records into existing under rootPath. When the chain named by
// rootPath already exists, its children are removed and rebuilt; nothing
// outside that chain is touched. When existing is nil or its root has a
// different title, a fresh tree is returned instead.
func (m *Materializer) Merge(existing *Node, rootPath string, records []cases.Record) (*Node, Result, error) {
	segments := naming.SplitRootPath(rootPath)
	if len(segments) == 0 {
		return nil, Result{}, ErrNoRoot
	}
	if !anyPlaceable(records) {
		return nil, Result{Dropped: len(records)}, fmt.Errorf("materialize cases: no placeable record: %w", doctree.ErrNoContent)
	}
	res := Result{Target: segments}

	root := existing
	var base *Node
	switch {
	case existing == nil:
		root = NewNode(segments[0])
	case existing.Title != segments[0]:
		m.log.Info("existing export has a different root, building a fresh tree",
			"existing_root", existing.Title, "root", segments[0])
		root = NewNode(segments[0])
	default:
		if base = FindPath(existing, segments); base != nil {
			m.log.Warn("replacing existing subtree", "path", strings.Join(segments, "/"), "children", len(base.Children))
			base.RemoveChildren()
			res.Replaced = true
		}
	}
	if base == nil {
		base = root
		for _, seg := range segments[1:] {
			base = getOrCreate(base, seg)
		}
	}
	if m.opts.StoryLabel != "" {
		base.AddLabel(m.opts.StoryLabel)
	}

	m.placeCases(base, segments, records, &res)
	return root, res, nil
}

// placeCases hangs every record under base. The node cache is keyed by the
// full path of titles and lives for this call only.
func (m *Materializer) placeCases(base *Node, prefix []string, records []cases.Record, res *Result) {
	cache := make(map[string]*Node)
	marked := make(map[string]bool)

	for _, r := range records {
		segs := r.Segments()
		if len(segs) < 2 {
			m.log.Warn("dropping case without parent context", "path", r.Path(), "id", r.ID)
			res.Dropped++
			continue
		}

		cur := base
		key := append([]string(nil), prefix...)
		for i, seg := range segs[:len(segs)-1] {
			title := m.title(seg)
			key = append(key, title)
			k := pathKey(key)
			if n, ok := cache[k]; ok {
				cur = n
				continue
			}
			n := cur.AddChild(title)
			if i == categorySegment && !marked[k] {
				n.AddMarker(MarkerTaskDone)
				marked[k] = true
			}
			cache[k] = n
			cur = n
		}

		// Case topics are never shared, even when titles repeat.
		caseNode := cur.AddChild(m.title(segs[len(segs)-1]))
		caseNode.AddMarker(PriorityMarker(r.Priority))
		if r.Precondition != "" {
			caseNode.Notes = NotePrefix + r.Precondition
		}
		for _, p := range r.Pairs() {
			step := caseNode.AddChild(m.title(p.Step))
			if p.Expected != "" {
				step.AddChild(m.title(p.Expected))
			}
		}
		res.Placed++
	}
}

func (m *Materializer) title(s string) string {
	if m.opts.PlainTitles {
		return PlainText(s)
	}
	return s
}

func anyPlaceable(records []cases.Record) bool {
	for _, r := range records {
		if len(r.Segments()) >= 2 {
			return true
		}
	}
	return false
}

func getOrCreate(parent *Node, title string) *Node {
	if c := parent.Child(title); c != nil {
		return c
	}
	return parent.AddChild(title)
}

// pathKey joins titles with a separator that cannot appear in a title.
func pathKey(titles []string) string {
	return strings.Join(titles, "\x1f")
}
