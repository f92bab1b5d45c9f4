// Package parser extracts the heading/list Markdown that the outline and
// case parsers read from the supported input formats.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Document is the text extracted from one input file.
type Document struct {
	Title  string // Title recorded by the format itself, empty when unknown
	Format string
	Text   string
}

// Parser converts raw document bytes into Markdown text.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// Options tune the parsers returned by ForFile.
type Options struct {
	// PDFFallback shells out to pdftotext when the Go PDF reader fails.
	PDFFallback bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// writer accumulates Markdown lines.
type writer struct {
	sb strings.Builder
}

func (w *writer) heading(level int, text string) {
	if text = collapse(text); text == "" {
		return
	}
	w.blank()
	w.sb.WriteString(strings.Repeat("#", level))
	w.sb.WriteByte(' ')
	w.sb.WriteString(text)
	w.sb.WriteString("\n\n")
}

func (w *writer) bullet(depth int, text string) {
	if text = collapse(text); text == "" {
		return
	}
	w.sb.WriteString(strings.Repeat("    ", depth))
	w.sb.WriteString("- ")
	w.sb.WriteString(text)
	w.sb.WriteByte('\n')
}

func (w *writer) paragraph(text string) {
	if text = strings.TrimSpace(text); text == "" {
		return
	}
	w.blank()
	w.sb.WriteString(text)
	w.sb.WriteString("\n\n")
}

// blank ends the current line group unless the output already ends with
// an empty line.
func (w *writer) blank() {
	s := w.sb.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if !strings.HasSuffix(s, "\n") {
		w.sb.WriteByte('\n')
	}
	w.sb.WriteByte('\n')
}

func (w *writer) String() string {
	return strings.TrimRight(w.sb.String(), "\n") + "\n"
}

// collapse joins the fields of s with single spaces, so titles stay on one line.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
