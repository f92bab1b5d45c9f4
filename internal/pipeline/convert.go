package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dgallion1/casemap/internal/cases"
	"github.com/dgallion1/casemap/internal/mindmap"
	"github.com/dgallion1/casemap/internal/naming"
	"github.com/dgallion1/casemap/internal/outline"
	"github.com/dgallion1/casemap/internal/parser"
	"github.com/dgallion1/casemap/internal/xmind"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Mode selects the grammar a document is read with.
type Mode string

const (
	ModeOutline Mode = "outline"
	ModeCases   Mode = "cases"
)

// ParseMode accepts "outline" and "cases"; the empty string means cases.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCases, "":
		return ModeCases, nil
	case ModeOutline:
		return ModeOutline, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeOutline, ModeCases)
}

// Request is one conversion.
type Request struct {
	Mode     Mode
	Filename string
	Data     []byte
	Root     string // Root label override, empty to derive it
	Story    string // Label for the node receiving the cases

	// Existing is a previous export to merge the cases into.
	Existing []byte
	// Target is an export file on disk. In cases mode it is loaded and
	// merged into, and the result is written back under a per-file lock.
	Target string
	// TargetDir, used when Target is empty, names the export after the
	// document and places it in this directory.
	TargetDir string
}

// Output is the result of a conversion.
type Output struct {
	Mode     Mode            `json:"mode"`
	Root     string          `json:"root"`
	FileName string          `json:"file_name"`
	Topics   int             `json:"topics"`
	Records  int             `json:"records,omitempty"`
	Result   *mindmap.Result `json:"result,omitempty"`
	Summary  *cases.Summary  `json:"summary,omitempty"`
	Written  string          `json:"written,omitempty"`

	Workbook []byte `json:"-"`
}

// Converter runs the extract, parse, materialize and encode steps.
type Converter struct {
	log   *slog.Logger
	parse parser.Options
	plain bool
	stats *Stats
	locks *TargetLocks
	cache *lru.Cache[string, *Output]
	nowFn func() time.Time
}

// ConverterOptions configure a Converter.
type ConverterOptions struct {
	PDFFallback bool
	PlainTitles bool
	CacheSize   int // 0 disables result reuse
}

func NewConverter(opts ConverterOptions, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Converter{
		log:   log,
		parse: parser.Options{PDFFallback: opts.PDFFallback},
		plain: opts.PlainTitles,
		stats: NewStats(time.Hour),
		locks: NewTargetLocks(),
		nowFn: time.Now,
	}
	if opts.CacheSize > 0 {
		// Only fails for non-positive sizes.
		c.cache, _ = lru.New[string, *Output](opts.CacheSize)
	}
	return c
}

// Stats returns the conversion latency stats.
func (c *Converter) Stats() *Stats {
	return c.stats
}

// Extract returns the Markdown text of a document.
func (c *Converter) Extract(filename string, data []byte) (*parser.Document, error) {
	p, err := parser.ForFile(filename, c.parse)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	return doc, nil
}

// Convert runs a request. report, when not nil, is told about each phase.
func (c *Converter) Convert(ctx context.Context, req Request, report func(JobStatus)) (out *Output, err error) {
	if report == nil {
		report = func(JobStatus) {}
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	req.Mode = mode

	start := c.nowFn()
	defer func() { c.stats.Record(mode, c.nowFn().Sub(start), err != nil) }()

	key := ""
	if c.cache != nil && req.Existing == nil && req.Target == "" && req.TargetDir == "" {
		key = cacheKey(req, c.plain)
		if cached, ok := c.cache.Get(key); ok {
			c.log.Debug("reusing cached conversion", "filename", req.Filename)
			return cached, nil
		}
	}

	report(StatusParsing)
	doc, err := c.Extract(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	label := resolveLabel(req, doc)
	if req.Target == "" && req.TargetDir != "" {
		req.Target = filepath.Join(req.TargetDir, exportName(mode, label))
	}
	log := c.log.With("filename", req.Filename, "mode", string(mode), "root", label.Root)

	switch mode {
	case ModeOutline:
		out, err = c.outline(ctx, doc.Text, label, req, report)
	default:
		out, err = c.cases(ctx, log, doc.Text, label, req, report)
	}
	if err != nil {
		return nil, err
	}
	log.Info("converted", "topics", out.Topics, "records", out.Records)

	if key != "" {
		c.cache.Add(key, out)
	}
	return out, nil
}

func (c *Converter) outline(ctx context.Context, text string, label naming.Label, req Request, report func(JobStatus)) (*Output, error) {
	tree, err := outline.Parse(text, label.Root)
	if err != nil {
		return nil, err
	}
	report(StatusMaterializing)
	root, err := mindmap.New(c.log, mindmap.Options{PlainTitles: c.plain}).Outline(label.Root, tree)
	if err != nil {
		return nil, err
	}
	out := &Output{
		Mode:     ModeOutline,
		Root:     root.Title,
		FileName: exportName(ModeOutline, label),
		Topics:   root.Count(),
	}

	report(StatusEncoding)
	wb := xmind.New(root)
	if req.Target != "" {
		// Outlines always replace the whole export.
		unlock, err := c.locks.Lock(ctx, req.Target)
		if err != nil {
			return nil, err
		}
		defer unlock()
		if err := wb.WriteFile(req.Target); err != nil {
			return nil, fmt.Errorf("write %s: %w", req.Target, err)
		}
		out.Written = req.Target
		return out, nil
	}
	if out.Workbook, err = wb.Bytes(); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return out, nil
}

func (c *Converter) cases(ctx context.Context, log *slog.Logger, text string, label naming.Label, req Request, report func(JobStatus)) (*Output, error) {
	records, err := cases.Parse(text)
	if err != nil {
		return nil, err
	}
	summary := cases.Summarize(records)
	m := mindmap.New(log, mindmap.Options{PlainTitles: c.plain, StoryLabel: req.Story})

	merge := func(wb *xmind.Workbook) (*Output, error) {
		report(StatusMaterializing)
		var existing *mindmap.Node
		if s := wb.Primary(); s != nil {
			existing = s.Root
		}
		root, res, err := m.Merge(existing, label.Root, records)
		if err != nil {
			return nil, err
		}
		wb.SetPrimary(root)
		if res.Dropped > 0 {
			log.Warn("cases without parent context were skipped", "dropped", res.Dropped)
		}
		return &Output{
			Mode:     ModeCases,
			Root:     root.Title,
			FileName: exportName(ModeCases, label),
			Topics:   root.Count(),
			Records:  len(records),
			Result:   &res,
			Summary:  &summary,
		}, nil
	}

	if req.Target != "" {
		unlock, err := c.locks.Lock(ctx, req.Target)
		if err != nil {
			return nil, err
		}
		defer unlock()

		wb, err := c.openExisting(log, req.Target)
		if err != nil {
			return nil, err
		}
		out, err := merge(wb)
		if err != nil {
			return nil, err
		}
		report(StatusEncoding)
		if err := wb.WriteFile(req.Target); err != nil {
			return nil, fmt.Errorf("write %s: %w", req.Target, err)
		}
		out.Written = req.Target
		return out, nil
	}

	wb := &xmind.Workbook{}
	if req.Existing != nil {
		loaded, err := xmind.Load(bytes.NewReader(req.Existing), int64(len(req.Existing)))
		switch {
		case err == nil:
			wb = loaded
		case errors.Is(err, xmind.ErrNotWorkbook):
			log.Warn("previous export is not a workbook, creating a new one", "error", err)
		default:
			return nil, err
		}
	}
	out, err := merge(wb)
	if err != nil {
		return nil, err
	}
	report(StatusEncoding)
	if out.Workbook, err = wb.Bytes(); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return out, nil
}

// resolveLabel names the root. A title carried by the document itself, such
// as a docx Title paragraph, beats the bare filename stem.
func resolveLabel(req Request, doc *parser.Document) naming.Label {
	label := naming.Resolve(naming.Source{Filename: req.Filename, Content: doc.Text, Override: req.Root})
	if req.Root == "" && doc.Title != "" && label.Root == label.Stem {
		label.Root = doc.Title
	}
	return label
}

func exportName(mode Mode, label naming.Label) string {
	if mode == ModeOutline {
		return naming.OutlineFileName(label)
	}
	return naming.CasesFileName(label)
}

// openExisting loads the export at path, or returns an empty workbook when
// there is none yet.
func (c *Converter) openExisting(log *slog.Logger, path string) (*xmind.Workbook, error) {
	wb, err := xmind.Open(path)
	switch {
	case err == nil:
		log.Info("merging into existing export", "path", path)
		return wb, nil
	case errors.Is(err, fs.ErrNotExist):
		return &xmind.Workbook{}, nil
	case errors.Is(err, xmind.ErrNotWorkbook):
		log.Warn("existing export is not a workbook, replacing it", "path", path, "error", err)
		return &xmind.Workbook{}, nil
	}
	return nil, fmt.Errorf("open %s: %w", path, err)
}

func cacheKey(req Request, plain bool) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\x00%s\x00%s\x00%s\x00%t\x00", req.Mode, req.Filename, req.Root, req.Story, plain)
	b.Write(req.Data)
	return ContentHashHex(b.Bytes())
}
