package lines

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		kind  Kind
		level int
		text  string
	}{
		{"h1", "# Title", Heading, 1, "Title"},
		{"h6", "###### Deep", Heading, 6, "Deep"},
		{"indented heading", "   ## Indented", Heading, 2, "Indented"},
		{"tab after hashes", "##\tTabbed", Heading, 2, "Tabbed"},
		{"seven hashes", "####### Seven", Plain, 0, "####### Seven"},
		{"no space", "#NoSpace", Plain, 0, "#NoSpace"},
		{"bare hashes", "##", Plain, 0, "##"},
		{"dash bullet", "- item", Bullet, 0, "item"},
		{"star bullet", "* item", Bullet, 0, "item"},
		{"glyph bullet", "• item", Bullet, 0, "item"},
		{"nested bullet", "\t- child", Bullet, 0, "child"},
		{"empty bullet", "- ", Blank, 0, ""},
		{"rule", "---", Blank, 0, ""},
		{"star rule", "*****", Blank, 0, ""},
		{"underscore rule", "___", Blank, 0, ""},
		{"empty", "", Blank, 0, ""},
		{"whitespace", " \t ", Blank, 0, ""},
		{"continuation spaces", "    body text", Continuation, 0, "body text"},
		{"continuation tab", "\tbody", Continuation, 0, "body"},
		{"single space is plain", " almost", Plain, 0, "almost"},
		{"indented hash", "  #tag", Plain, 0, "#tag"},
		{"plain", "1. 步骤一", Plain, 0, "1. 步骤一"},
		{"trailing space", "- item   ", Bullet, 0, "item"},
		{"emphasis after marker", "- **加粗** 内容", Bullet, 0, "**加粗** 内容"},
		{"single marker stripped", "-- item", Bullet, 0, "- item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line)
			assert.Equal(t, tt.kind, got.Kind, "kind of %q", tt.line)
			assert.Equal(t, tt.level, got.Level, "level of %q", tt.line)
			assert.Equal(t, tt.text, got.Text, "text of %q", tt.line)
		})
	}
}

func TestIndentWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"x", 0},
		{"  x", 2},
		{"\tx", 4},
		{"\t  x", 6},
		{"  \tx", 6},
		{"\t\tx", 8},
		{"        x", 8},
		{"　x", 1}, // ideographic space
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IndentWidth(tt.in), "IndentWidth(%q)", tt.in)
	}
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(0))
	assert.Equal(t, 0, Depth(3))
	assert.Equal(t, 1, Depth(4))
	assert.Equal(t, 1, Depth(7))
	assert.Equal(t, 2, Depth(8))
	assert.Equal(t, 0, Depth(-1))
}

func TestSplit_StripsCarriageReturns(t *testing.T) {
	got := Split("# A\r\n- b\r\n")
	assert.Len(t, got, 3)
	assert.Equal(t, Heading, got[0].Kind)
	assert.Equal(t, "A", got[0].Text)
	assert.Equal(t, Bullet, got[1].Kind)
	assert.Equal(t, "b", got[1].Text)
	assert.Equal(t, Blank, got[2].Kind)
}

func TestSplit_MixedTabsAndSpacesNormalizeEqually(t *testing.T) {
	tabbed := Split("\t- x")
	spaced := Split("    - x")
	assert.Equal(t, tabbed[0].Indent, spaced[0].Indent)
	assert.Equal(t, Depth(tabbed[0].Indent), Depth(spaced[0].Indent))
}
