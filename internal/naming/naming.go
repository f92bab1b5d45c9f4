// Package naming derives root labels and export file names from document
// names and content. Everything here is purely textual.
package naming

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/casemap/internal/lines"
)

// DefaultRoot is the root title used when nothing better is known.
const DefaultRoot = "测试用例"

var (
	productVersionRe = regexp.MustCompile(`(?i)(.+?)_?(V\d+\.\d+(?:\.\d+)?)`)
	versionDirRe     = regexp.MustCompile(`(?i)^V\d+`)
	driveRe          = regexp.MustCompile(`^[A-Za-z]:$`)
)

// excludedDirs are directory names that never name a product.
var excludedDirs = map[string]bool{
	"测试系统": true,
	"测试用例": true,
	"需求文档": true,
	"技术文档": true,
	".":    true,
	"..":   true,
}

// Source is what the caller knows about a document.
type Source struct {
	Filename string // Base name or path; only the base name is used
	Content  string // Decoded document text
	Override string // Explicit root label, wins over everything
}

// Label is the derived naming for one document.
type Label struct {
	Root    string `json:"root"`
	Product string `json:"product,omitempty"`
	Version string `json:"version,omitempty"`
	Stem    string `json:"stem"`
}

// Resolve derives the root label. Preference order: override, product and
// version, product alone, the document's leading level-1 heading, the
// filename stem, DefaultRoot.
func Resolve(src Source) Label {
	base := baseName(src.Filename)
	l := Label{Stem: Stem(base)}
	l.Product, l.Version = SplitVersion(base)

	switch {
	case strings.TrimSpace(src.Override) != "":
		l.Root = strings.TrimSpace(src.Override)
	case l.Product != "" && l.Version != "":
		l.Root = l.Product + l.Version
	case l.Product != "":
		l.Root = l.Product
	default:
		if h := LeadingHeading(src.Content); h != "" {
			l.Root = h
		} else if l.Stem != "" {
			l.Root = l.Stem
		} else {
			l.Root = DefaultRoot
		}
	}
	return l
}

// SplitVersion finds a V<major>.<minor>[.<patch>] token in name and returns
// the text before it as product. Both are empty when there is no version.
func SplitVersion(name string) (product, version string) {
	m := productVersionRe.FindStringSubmatch(name)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// LeadingHeading returns the title of the first non-blank line when it is a
// level-1 heading.
func LeadingHeading(text string) string {
	for _, l := range lines.Split(text) {
		if strings.TrimSpace(l.Raw) == "" {
			continue
		}
		if l.Kind == lines.Heading && l.Level == 1 {
			return l.Text
		}
		return ""
	}
	return ""
}

// Stem returns the base name without its extension.
func Stem(name string) string {
	base := baseName(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SplitRootPath splits a root label into path segments. "/" separates
// segments when present, "-" otherwise.
func SplitRootPath(p string) []string {
	sep := "-"
	if strings.Contains(p, "/") {
		sep = "/"
	}
	var out []string
	for _, part := range strings.Split(p, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CasesFileName is the export name for a case document.
func CasesFileName(l Label) string {
	if l.Product != "" && l.Version != "" {
		return l.Product + l.Version + "测试用例.xmind"
	}
	if l.Stem != "" {
		return l.Stem + ".xmind"
	}
	return DefaultRoot + ".xmind"
}

// OutlineFileName is the export name for a generic outline document.
func OutlineFileName(l Label) string {
	stem := l.Stem
	if stem == "" {
		stem = DefaultRoot
	}
	return stem + "_完整版.xmind"
}

// OutputDir maps a case file location to its export directory:
// <base>/output/test_cases becomes <base>/output/xmind. Other locations
// export next to the source.
func OutputDir(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	if dir == "" {
		return "."
	}
	normalized := filepath.ToSlash(dir)
	abs := strings.HasPrefix(normalized, "/")
	if !abs {
		normalized = "/" + normalized
	}
	const marker = "/output/test_cases"
	i := strings.Index(normalized, marker)
	if i < 0 {
		return dir
	}
	base := normalized[:i]
	if !abs {
		base = strings.TrimPrefix(base, "/")
	} else if base == "" {
		base = "/"
	}
	return filepath.FromSlash(path.Join(base, "output", "xmind"))
}

// DirFileName names an export after its directory: the first directory that
// is not excluded names the product, a V-prefixed one names the version.
func DirFileName(dir string) string {
	var product, version string
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		part = strings.TrimSpace(part)
		if part == "" || excludedDirs[part] || driveRe.MatchString(part) {
			continue
		}
		if versionDirRe.MatchString(part) {
			version = part
		} else if product == "" {
			product = part
		}
	}
	switch {
	case product != "" && version != "":
		return product + version + "测试用例.xmind"
	case product != "":
		return product + "测试用例.xmind"
	}
	return DefaultRoot + ".xmind"
}

func baseName(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
}
