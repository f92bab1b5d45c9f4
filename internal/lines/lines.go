package lines

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the context-free classification of a single source line.
type Kind int

const (
	Blank Kind = iota
	Heading
	Bullet
	Continuation
	// Plain is un-indented body text. The outline builder ignores it; the
	// case parser looks at it for numbered step lines.
	Plain
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Heading:
		return "heading"
	case Bullet:
		return "bullet"
	case Continuation:
		return "continuation"
	case Plain:
		return "plain"
	}
	return "unknown"
}

// TabWidth is the column width of one tab character.
const TabWidth = 4

// Line is one classified source line.
type Line struct {
	Raw    string // Line without trailing whitespace
	Indent int    // Leading whitespace in canonical columns
	Kind   Kind
	Level  int    // Heading level (1-6), 0 otherwise
	Text   string // Heading title, bullet content, or trimmed text
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// bulletMarkers are the single-character list markers recognized in front of
// bullet content.
const bulletMarkers = "-*+•◦▪‣"

// Classify classifies one line of text (without its newline).
func Classify(raw string) Line {
	raw = strings.TrimRightFunc(raw, unicode.IsSpace)
	line := Line{Raw: raw, Indent: IndentWidth(raw)}

	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	if trimmed == "" || isRule(trimmed) {
		line.Kind = Blank
		return line
	}

	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		line.Kind = Heading
		line.Level = len(m[1])
		line.Text = strings.TrimSpace(m[2])
		return line
	}

	if r, size := utf8.DecodeRuneInString(trimmed); strings.ContainsRune(bulletMarkers, r) {
		// Only the first marker goes; "- **bold**" keeps its emphasis.
		content := strings.TrimSpace(trimmed[size:])
		if content == "" {
			line.Kind = Blank
			return line
		}
		line.Kind = Bullet
		line.Text = content
		return line
	}

	line.Text = trimmed
	if hasIndentUnit(raw) && !strings.HasPrefix(trimmed, "#") {
		line.Kind = Continuation
		return line
	}
	line.Kind = Plain
	return line
}

// Split splits text into lines and classifies each of them.
func Split(text string) []Line {
	raw := strings.Split(text, "\n")
	out := make([]Line, 0, len(raw))
	for _, l := range raw {
		out = append(out, Classify(strings.TrimSuffix(l, "\r")))
	}
	return out
}

// IndentWidth returns the canonical column width of the leading whitespace
// of s. A tab counts TabWidth columns, every other whitespace rune counts one.
func IndentWidth(s string) int {
	width := 0
	for _, r := range s {
		switch {
		case r == '\t':
			width += TabWidth
		case unicode.IsSpace(r):
			width++
		default:
			return width
		}
	}
	return width
}

// Depth converts a canonical column width into a logical nesting depth.
func Depth(width int) int {
	if width <= 0 {
		return 0
	}
	return width / TabWidth
}

// hasIndentUnit reports whether s starts with a tab or two spaces.
func hasIndentUnit(s string) bool {
	return strings.HasPrefix(s, "\t") || strings.HasPrefix(s, "  ")
}

// isRule reports whether s is a horizontal rule: three or more of the same
// rule character and nothing else.
func isRule(s string) bool {
	if len(s) < 3 {
		return false
	}
	c := s[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}
