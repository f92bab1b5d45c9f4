package cases

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/casemap/internal/doctree"
	"github.com/dgallion1/casemap/internal/lines"
)

var numberedRe = regexp.MustCompile(`^\s*(\d+)\.\s*(.+)$`)

// scope holds the open path segments above the current case.
type scope struct {
	module, feature, category string
}

type parser struct {
	ctx     scope
	current *Record
	capture Field // FieldSteps, FieldExpected or FieldNone
	records []Record
}

// Parse extracts case records from text in a single forward pass. It
// returns doctree.ErrNoContent when no case heading was found.
func Parse(text string) ([]Record, error) {
	var p parser
	for _, l := range lines.Split(text) {
		p.add(l)
	}
	p.finish()
	if len(p.records) == 0 {
		return nil, fmt.Errorf("case records: %w", doctree.ErrNoContent)
	}
	return p.records, nil
}

func (p *parser) add(l lines.Line) {
	switch l.Kind {
	case lines.Blank:
		return
	case lines.Heading:
		p.heading(l.Level, l.Text)
		return
	}

	if p.current == nil {
		return
	}

	trimmed := strings.TrimSpace(l.Raw)
	if f, value, ok := ClassifyField(trimmed); ok {
		p.field(f, value)
		return
	}
	if l.Kind == lines.Bullet {
		// Unlabeled bullets must not leak into steps or expected results.
		p.capture = FieldNone
		return
	}

	m := numberedRe.FindStringSubmatch(trimmed)
	if m == nil {
		return
	}
	item := strings.TrimSpace(m[2])
	switch p.capture {
	case FieldSteps:
		p.current.Steps = append(p.current.Steps, item)
	case FieldExpected:
		p.current.Expected = append(p.current.Expected, item)
	}
}

func (p *parser) heading(level int, text string) {
	switch level {
	case 1:
		p.finish()
		p.ctx = scope{}
	case 2:
		p.finish()
		p.ctx = scope{module: text}
	case 3:
		p.finish()
		p.ctx.feature = text
		p.ctx.category = ""
	case 4:
		p.finish()
		p.ctx.category = text
	case 5:
		p.finish()
		p.open(text)
	}
	// Level 6 is not part of the grammar; it only ends any capture.
	p.capture = FieldNone
}

func (p *parser) open(text string) {
	id, title := SplitCaseHeading(text)
	p.current = &Record{
		ID:       id,
		Title:    title,
		Module:   p.ctx.module,
		Feature:  p.ctx.feature,
		Category: p.ctx.category,
		Priority: DefaultPriority,
		Steps:    []string{},
		Expected: []string{},
	}
}

func (p *parser) field(f Field, value string) {
	switch f {
	case FieldPrecondition:
		p.current.Precondition = value
		p.capture = FieldNone
	case FieldSteps, FieldExpected:
		p.capture = f
	case FieldPriority:
		p.current.Priority = ParsePriority(value)
		p.capture = FieldNone
	}
}

// finish appends the in-progress record, if any.
func (p *parser) finish() {
	if p.current != nil {
		p.records = append(p.records, *p.current)
		p.current = nil
	}
}
