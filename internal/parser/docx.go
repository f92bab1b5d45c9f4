package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/klauspost/compress/zip"
)

// DOCXParser handles .docx files. Heading styles become "#" headings, list
// styles become "- " bullets indented by their list level, and every other
// paragraph is written as text.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := &Document{Format: "docx"}
	var w writer
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		style := docxStyle(para)
		switch {
		case strings.EqualFold(style, "Title"):
			if out.Title == "" {
				out.Title = collapse(text)
			}
			w.heading(1, text)
		case docxHeadingLevel(style) > 0:
			w.heading(docxHeadingLevel(style), text)
		case docxListLevel(style) > 0:
			w.bullet(docxListLevel(style)-1, text)
		default:
			w.paragraph(text)
		}
	}
	out.Text = w.String()
	return out, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel maps "Heading1" and "heading 1" style ids to 1..6.
func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(s, "heading") || len(s) != len("heading")+1 {
		return 0
	}
	if d := s[len(s)-1]; d >= '1' && d <= '6' {
		return int(d - '0')
	}
	return 0
}

// docxListLevel returns the 1-based nesting of list styles such as
// "ListParagraph", "List Bullet 2" or "ListNumber3", and 0 for other styles.
func docxListLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(s, "list") || s == "list" {
		return 0
	}
	if d := s[len(s)-1]; d >= '2' && d <= '9' {
		return int(d - '0')
	}
	return 1
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// ExtractMedia copies the images embedded in a .docx archive (word/media)
// into dir and returns the written paths.
func ExtractMedia(data []byte, dir string) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	var written []string
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "word/media/") || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if len(written) == 0 {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dst := filepath.Join(dir, path.Base(f.Name))
		if err := copyEntry(f, dst); err != nil {
			return written, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func copyEntry(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
