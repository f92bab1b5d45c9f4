package mindmap

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// inlineMarkup lists the characters that can start inline Markdown.
const inlineMarkup = "*_`[<\\~"

// PlainText strips inline Markdown (emphasis, code spans, links, autolinks,
// escapes) from a single-line title. Text that would parse as a block
// construct other than a paragraph is returned unchanged.
func PlainText(s string) string {
	if !strings.ContainsAny(s, inlineMarkup) {
		return s
	}
	src := []byte(s)
	doc := md.Parser().Parse(text.NewReader(src))
	para, ok := doc.FirstChild().(*ast.Paragraph)
	if !ok || para.NextSibling() != nil {
		return s
	}

	var buf bytes.Buffer
	_ = ast.Walk(para, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return s
	}
	return out
}
