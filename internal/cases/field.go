package cases

import "strings"

// Field is a labeled case bullet.
type Field int

const (
	FieldNone Field = iota
	FieldPrecondition
	FieldSteps
	FieldExpected
	FieldPriority
)

func (f Field) String() string {
	switch f {
	case FieldPrecondition:
		return "precondition"
	case FieldSteps:
		return "steps"
	case FieldExpected:
		return "expected"
	case FieldPriority:
		return "priority"
	}
	return "none"
}

var fieldLabels = []struct {
	label string
	field Field
}{
	{"前置", FieldPrecondition},
	{"操作", FieldSteps},
	{"预期", FieldExpected},
	{"优先级", FieldPriority},
}

// ClassifyField recognizes a trimmed "- <label>：<value>" line. The colon
// may be full-width or half-width. ok is false for lines that are not
// labeled fields.
func ClassifyField(trimmed string) (f Field, value string, ok bool) {
	rest, found := strings.CutPrefix(trimmed, "- ")
	if !found {
		return FieldNone, "", false
	}
	for _, fl := range fieldLabels {
		after, found := strings.CutPrefix(rest, fl.label)
		if !found {
			continue
		}
		if v, found := strings.CutPrefix(after, "："); found {
			return fl.field, strings.TrimSpace(v), true
		}
		if v, found := strings.CutPrefix(after, ":"); found {
			return fl.field, strings.TrimSpace(v), true
		}
	}
	return FieldNone, "", false
}
