package parser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestForFile(t *testing.T) {
	tests := map[string]string{
		"a.md":       "*parser.MarkdownParser",
		"a.MARKDOWN": "*parser.MarkdownParser",
		"a.txt":      "*parser.TextParser",
		"a.csv":      "*parser.CSVParser",
		"a.htm":      "*parser.HTMLParser",
		"a.pdf":      "*parser.PDFParser",
		"a.docx":     "*parser.DOCXParser",
	}
	for name, want := range tests {
		p, err := ForFile(name, Options{})
		if err != nil {
			t.Fatalf("ForFile(%q): %v", name, err)
		}
		if got := typeName(p); got != want {
			t.Errorf("ForFile(%q) = %s, want %s", name, got, want)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("IsSupportedExtension(%q) = false", name)
		}
	}

	if _, err := ForFile("a.xlsx", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
	p, _ := ForFile("a.pdf", Options{PDFFallback: true})
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected pdf fallback to be passed through")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *TextParser:
		return "*parser.TextParser"
	case *CSVParser:
		return "*parser.CSVParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	}
	return "unknown"
}

func TestTextParser_NormalizesLineEndings(t *testing.T) {
	input := "\xef\xbb\xbf# Title\r\n- item\r\n\tdetail\rlast"
	doc, err := (&TextParser{}).Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "# Title\n- item\n\tdetail\nlast"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
	if doc.Format != "text" || doc.Title != "" {
		t.Errorf("unexpected metadata: %+v", doc)
	}
}

func TestMarkdownParser_PassThrough(t *testing.T) {
	input := "# Title\n\n- a\n    - b\n\n---\n\n## Section\n"
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != input {
		t.Errorf("expected text unchanged, got %q", doc.Text)
	}
}

func TestMarkdownParser_SetextHeading(t *testing.T) {
	input := "Release notes\n=============\n\n- item\n\nSub title\n---------\n"
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "# Release notes\n\n- item\n\nSub title\n---------\n"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
}

func TestHTMLParser_HeadingsAndLists(t *testing.T) {
	input := `<html><head><title>登录需求</title><style>p{}</style></head><body>
<h1>登录</h1>
<p>用户通过账号密码登录。</p>
<ul>
  <li>账号
    <ul><li>手机号</li><li>邮箱</li></ul>
  </li>
  <li>密码</li>
</ul>
<h2>异常</h2>
<script>var x = 1;</script>
</body></html>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "login.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "登录需求" {
		t.Errorf("expected title %q, got %q", "登录需求", doc.Title)
	}
	want := "# 登录\n\n用户通过账号密码登录。\n\n- 账号\n    - 手机号\n    - 邮箱\n- 密码\n\n## 异常\n"
	if doc.Text != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, doc.Text)
	}
}

func TestCSVParser_Cases(t *testing.T) {
	input := "模块,功能,编号,标题,前置条件,操作步骤,预期结果,优先级\n" +
		"登录,账号登录,R1-B01,正常登录,已注册,\"1. 输入账号\n2. 点击登录\",进入首页,P1\n" +
		"登录,账号登录,,密码错误,,输入错误密码,提示错误,3\n"
	doc, err := (&CSVParser{}).Parse(strings.NewReader(input), "cases.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `## 登录

### 账号登录

##### R1-B01 正常登录

- 前置：已注册
- 操作：
1. 输入账号
2. 点击登录
- 预期：
1. 进入首页
- 优先级：P1

##### 密码错误

- 操作：
1. 输入错误密码
- 预期：
1. 提示错误
- 优先级：3
`
	if doc.Text != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, doc.Text)
	}
}

func TestCSVParser_OutlineFallback(t *testing.T) {
	input := "需求,子项\n登录,短信\n,扫码\n"
	doc, err := (&CSVParser{}).Parse(strings.NewReader(input), "outline.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "- 需求\n    - 子项\n- 登录\n    - 短信\n    - 扫码\n"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
}

func TestNumbered(t *testing.T) {
	got := numbered("1. a\n2、b\n\nc\n10.d")
	want := []string{"a", "b", "c", "d"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDocxStyles(t *testing.T) {
	headings := map[string]int{"Heading1": 1, "heading 3": 3, "Heading6": 6, "Heading7": 0, "Heading10": 0, "Normal": 0}
	for style, want := range headings {
		if got := docxHeadingLevel(style); got != want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", style, got, want)
		}
	}
	lists := map[string]int{"ListParagraph": 1, "List Bullet": 1, "List Bullet 2": 2, "ListNumber3": 3, "List": 0, "Normal": 0}
	for style, want := range lists {
		if got := docxListLevel(style); got != want {
			t.Errorf("docxListLevel(%q) = %d, want %d", style, got, want)
		}
	}
}

func TestExtractMedia(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string]string{
		"word/document.xml":     "<w:document/>",
		"word/media/image1.png": "png-bytes",
		"word/media/":           "",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "images")
	written, err := ExtractMedia(buf.Bytes(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "image1.png" {
		t.Fatalf("unexpected files: %v", written)
	}
	data, err := os.ReadFile(written[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestWriter(t *testing.T) {
	var w writer
	w.paragraph("intro")
	w.heading(2, "  two\n words ")
	w.bullet(0, "a")
	w.bullet(1, "")
	w.bullet(1, "b")
	w.heading(3, "")
	w.paragraph("tail")
	want := "intro\n\n## two words\n\n- a\n    - b\n\ntail\n"
	if got := w.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
