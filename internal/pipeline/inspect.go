package pipeline

import (
	"github.com/dgallion1/casemap/internal/cases"
	"github.com/dgallion1/casemap/internal/doctree"
	"github.com/dgallion1/casemap/internal/naming"
	"github.com/dgallion1/casemap/internal/outline"
)

// Inspection is the parsed form of a document, before any mind map is
// built from it.
type Inspection struct {
	Mode     Mode            `json:"mode"`
	Filename string          `json:"filename"`
	Format   string          `json:"format"`
	Label    naming.Label    `json:"label"`
	FileName string          `json:"file_name"`
	Records  []cases.Record  `json:"records,omitempty"`
	Summary  *cases.Summary  `json:"summary,omitempty"`
	Outline  []*doctree.Node `json:"outline,omitempty"`
	Nodes    int             `json:"nodes,omitempty"`
}

// Inspect extracts and parses a document the way Convert would. Existing
// and Target are ignored.
func (c *Converter) Inspect(req Request) (*Inspection, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	doc, err := c.Extract(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	label := resolveLabel(req, doc)
	in := &Inspection{Mode: mode, Filename: req.Filename, Format: doc.Format, Label: label}

	if mode == ModeOutline {
		tree, err := outline.Parse(doc.Text, label.Root)
		if err != nil {
			return nil, err
		}
		in.FileName = exportName(ModeOutline, label)
		in.Outline = tree.Children
		in.Nodes = tree.Count()
		return in, nil
	}

	records, err := cases.Parse(doc.Text)
	if err != nil {
		return nil, err
	}
	summary := cases.Summarize(records)
	in.FileName = exportName(ModeCases, label)
	in.Records = records
	in.Summary = &summary
	return in, nil
}
