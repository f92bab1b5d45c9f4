package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser handles test case spreadsheets exported as CSV. The header row
// names the columns; rows are rewritten as case markup so they go through
// the same parser as hand-written files. A sheet without a title column is
// rendered as an outline of its rows instead.
type CSVParser struct{}

// csvColumns maps accepted header names to case fields.
var csvColumns = map[string]string{
	"模块": "module", "module": "module",
	"功能": "feature", "feature": "feature",
	"分类": "category", "category": "category",
	"编号": "id", "用例编号": "id", "id": "id",
	"标题": "title", "用例标题": "title", "title": "title",
	"前置": "precondition", "前置条件": "precondition", "precondition": "precondition",
	"步骤": "steps", "操作步骤": "steps", "steps": "steps",
	"预期": "expected", "预期结果": "expected", "expected": "expected",
	"优先级": "priority", "priority": "priority",
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(strings.NewReader(normalize(src)))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	out := &Document{Format: "csv"}
	if len(records) == 0 {
		return out, nil
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		if f, ok := csvColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[f]; !dup {
				cols[f] = i
			}
		}
	}
	if _, ok := cols["title"]; !ok {
		out.Text = csvOutline(records)
		return out, nil
	}
	out.Text = csvCases(records[1:], cols)
	return out, nil
}

func csvCases(rows [][]string, cols map[string]int) string {
	get := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var w writer
	var module, feature, category string
	for _, row := range rows {
		title := collapse(get(row, "title"))
		if title == "" {
			continue
		}
		if m := get(row, "module"); m != "" && m != module {
			module, feature, category = m, "", ""
			w.heading(2, m)
		}
		if f := get(row, "feature"); f != "" && f != feature {
			feature, category = f, ""
			w.heading(3, f)
		}
		if c := get(row, "category"); c != "" && c != category {
			category = c
			w.heading(4, c)
		}
		if id := get(row, "id"); id != "" {
			title = id + " " + title
		}
		w.heading(5, title)

		if pre := collapse(get(row, "precondition")); pre != "" {
			w.sb.WriteString("- 前置：" + pre + "\n")
		}
		if steps := numbered(get(row, "steps")); len(steps) > 0 {
			w.sb.WriteString("- 操作：\n")
			for i, s := range steps {
				fmt.Fprintf(&w.sb, "%d. %s\n", i+1, s)
			}
		}
		if exp := numbered(get(row, "expected")); len(exp) > 0 {
			w.sb.WriteString("- 预期：\n")
			for i, s := range exp {
				fmt.Fprintf(&w.sb, "%d. %s\n", i+1, s)
			}
		}
		if pr := get(row, "priority"); pr != "" {
			w.sb.WriteString("- 优先级：" + collapse(pr) + "\n")
		}
	}
	return w.String()
}

// csvOutline renders a sheet without case columns: the first column gives
// the top-level bullets and every further non-empty cell nests one level
// deeper.
func csvOutline(records [][]string) string {
	var w writer
	for _, row := range records {
		for depth, cell := range row {
			w.bullet(depth, cell)
		}
	}
	return w.String()
}

// numbered splits a multi-line cell into its items, dropping "1." style
// prefixes that the sheet author typed.
func numbered(cell string) []string {
	var items []string
	for _, line := range strings.Split(cell, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.IndexAny(line, ".、"); i > 0 && isDigits(line[:i]) {
			_, size := utf8.DecodeRuneInString(line[i:])
			line = strings.TrimSpace(line[i+size:])
		}
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
