package parser

import (
	"io"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files. The text passes through unchanged
// except for level-1 setext headings ("Title" over "===="), which are
// rewritten as "# Title" because the line grammar only knows ATX headings.
// Dash underlines are left alone since "---" is also a rule.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := normalize(src)
	return &Document{Format: "markdown", Text: rewriteSetext(s)}, nil
}

func rewriteSetext(s string) string {
	if !strings.Contains(s, "==") {
		return s
	}
	src := []byte(s)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	lines := strings.Split(s, "\n")
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}
	lineOf := func(pos int) int {
		return sort.SearchInts(starts, pos+1) - 1
	}

	replace := map[int]string{}
	drop := map[int]bool{}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 || h.Lines().Len() == 0 {
			continue
		}
		segs := h.Lines()
		first := lineOf(segs.At(0).Start)
		last := lineOf(segs.At(segs.Len() - 1).Start)
		if strings.HasPrefix(strings.TrimSpace(lines[first]), "#") {
			continue
		}
		underline := last + 1
		if underline >= len(lines) || !isSetextEquals(lines[underline]) {
			continue
		}
		parts := make([]string, 0, last-first+1)
		for i := first; i <= last; i++ {
			parts = append(parts, strings.TrimSpace(lines[i]))
			drop[i] = true
		}
		delete(drop, first)
		replace[first] = "# " + strings.Join(parts, " ")
		drop[underline] = true
	}
	if len(replace) == 0 {
		return s
	}

	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if drop[i] {
			continue
		}
		if r, ok := replace[i]; ok {
			l = r
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func isSetextEquals(line string) bool {
	t := strings.TrimSpace(line)
	return t != "" && strings.Trim(t, "=") == ""
}
