package parser

import (
	"bytes"
	"io"
	"strings"
)

// TextParser handles plain text files. The text is kept as written.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Document{Format: "text", Text: normalize(src)}, nil
}

var bom = []byte("\xef\xbb\xbf")

// normalize drops a UTF-8 byte order mark and converts CRLF and lone CR
// line endings to LF.
func normalize(src []byte) string {
	src = bytes.TrimPrefix(src, bom)
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
