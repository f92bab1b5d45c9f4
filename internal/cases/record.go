// Package cases parses the constrained test-case markup:
//
//	## module
//	### feature
//	#### category
//	##### R1-B01 case title
//	- 前置：precondition
//	- 操作：
//	1. step
//	- 预期：
//	1. expected result
//	- 优先级：P1
//
// into flat records that carry their hierarchical path.
package cases

import (
	"regexp"
	"strings"
)

// PathSeparator joins the segments of a record path.
const PathSeparator = "-"

// DefaultPriority is used when a case has no recognizable priority.
const DefaultPriority = 2

// caseIDRe matches a leading identifier such as R1-B01; the short form C01
// is accepted as well.
var caseIDRe = regexp.MustCompile(`^([A-Z]\d+(?:-[A-Z]\d+)?)\s+(.+)$`)

// Record is one test case.
type Record struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Module       string   `json:"module,omitempty"`
	Feature      string   `json:"feature,omitempty"`
	Category     string   `json:"category,omitempty"`
	Priority     int      `json:"priority"`
	Precondition string   `json:"precondition,omitempty"`
	Steps        []string `json:"steps"`
	Expected     []string `json:"expected"`
}

// Pair is a step with its positionally matched expected result.
type Pair struct {
	Step     string `json:"step"`
	Expected string `json:"expected,omitempty"`
}

// Path returns the non-empty context segments followed by the title,
// joined by PathSeparator.
func (r Record) Path() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{r.Module, r.Feature, r.Category} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, r.Title)
	return strings.Join(parts, PathSeparator)
}

// Segments splits Path on the separator, trimming and dropping empty parts.
func (r Record) Segments() []string {
	return SplitPath(r.Path())
}

// Pairs matches steps with expected results by index. Steps beyond the
// expected list have an empty Expected.
func (r Record) Pairs() []Pair {
	pairs := make([]Pair, len(r.Steps))
	for i, s := range r.Steps {
		pairs[i].Step = s
		if i < len(r.Expected) {
			pairs[i].Expected = r.Expected[i]
		}
	}
	return pairs
}

// SplitPath splits a record path into trimmed, non-empty segments.
func SplitPath(path string) []string {
	var out []string
	for _, p := range strings.Split(path, PathSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitCaseHeading separates a leading case identifier from the title.
// Headings without a well-formed identifier keep their whole text as title.
func SplitCaseHeading(text string) (id, title string) {
	text = strings.TrimSpace(text)
	if m := caseIDRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", text
}

var priorityTokens = []struct {
	token string
	value int
}{
	{"P1", 1}, {"P2", 2}, {"P3", 3}, {"P4", 4},
	{"1", 1}, {"2", 2}, {"3", 3}, {"4", 4},
}

// ParsePriority maps P1..P4 or 1..4 to the priority level. Tokens are
// matched case-insensitively and in that order; anything else is
// DefaultPriority.
func ParsePriority(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, pt := range priorityTokens {
		if strings.Contains(s, pt.token) {
			return pt.value
		}
	}
	return DefaultPriority
}
