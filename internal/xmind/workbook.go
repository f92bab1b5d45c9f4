// Package xmind reads and writes XMind workbooks (the zip container with
// content.json used since XMind Zen). Sheets, topic attributes and archive
// entries it does not model are carried through a load/save cycle.
package xmind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgallion1/casemap/internal/mindmap"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// ErrNotWorkbook is returned for files that are not a content.json
// workbook, including legacy XML workbooks. Callers create a fresh one.
var ErrNotWorkbook = errors.New("not an xmind workbook")

const (
	contentEntry  = "content.json"
	metadataEntry = "metadata.json"
	manifestEntry = "manifest.json"
)

// Creator is written to metadata.json of new workbooks.
var Creator = "casemap"

// Sheet is one canvas of a workbook.
type Sheet struct {
	ID    string
	Title string
	Root  *mindmap.Node
	Extra map[string]json.RawMessage
}

type entry struct {
	name   string
	method uint16
	data   []byte
}

// Workbook is a decoded workbook.
type Workbook struct {
	Sheets []*Sheet

	metadata json.RawMessage
	entries  []entry // Archive entries other than content, metadata and manifest
}

// New returns a one-sheet workbook around root.
func New(root *mindmap.Node) *Workbook {
	return &Workbook{Sheets: []*Sheet{{Title: root.Title, Root: root}}}
}

// Primary returns the first sheet, or nil for an empty workbook.
func (wb *Workbook) Primary() *Sheet {
	if len(wb.Sheets) == 0 {
		return nil
	}
	return wb.Sheets[0]
}

// SetPrimary makes root the root topic of the first sheet, adding a sheet
// when there is none. The sheet keeps its id and attributes.
func (wb *Workbook) SetPrimary(root *mindmap.Node) {
	s := wb.Primary()
	if s == nil {
		wb.Sheets = append(wb.Sheets, &Sheet{Title: root.Title, Root: root})
		return
	}
	if s.Root == nil || s.Title == "" || s.Title == s.Root.Title {
		s.Title = root.Title
	}
	s.Root = root
}

// Load decodes a workbook from r.
func Load(r io.ReaderAt, size int64) (*Workbook, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}

	wb := &Workbook{}
	var content []byte
	for _, f := range zr.File {
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		switch f.Name {
		case contentEntry:
			content = data
		case metadataEntry:
			wb.metadata = data
		case manifestEntry:
			// Regenerated on save.
		default:
			wb.entries = append(wb.entries, entry{name: f.Name, method: f.Method, data: data})
		}
	}
	if content == nil {
		return nil, fmt.Errorf("%w: no %s", ErrNotWorkbook, contentEntry)
	}

	var sheets []json.RawMessage
	if err := json.Unmarshal(content, &sheets); err != nil {
		return nil, fmt.Errorf("decode %s: %w", contentEntry, err)
	}
	for i, raw := range sheets {
		s, err := decodeSheet(raw)
		if err != nil {
			return nil, fmt.Errorf("sheet %d: %w", i, err)
		}
		wb.Sheets = append(wb.Sheets, s)
	}
	return wb, nil
}

// Open loads the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Load(f, info.Size())
}

// Save encodes the workbook to w.
func (wb *Workbook) Save(w io.Writer) error {
	content, err := wb.encodeContent()
	if err != nil {
		return err
	}
	metadata := wb.metadata
	if metadata == nil {
		metadata, err = json.Marshal(map[string]any{
			"creator": map[string]string{"name": Creator},
		})
		if err != nil {
			return err
		}
	}

	names := []string{contentEntry, metadataEntry}
	for _, e := range wb.entries {
		names = append(names, e.name)
	}
	manifest, err := encodeManifest(names)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	write := func(name string, method uint16, data []byte) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}
	if err := write(contentEntry, zip.Deflate, content); err != nil {
		return err
	}
	if err := write(metadataEntry, zip.Deflate, metadata); err != nil {
		return err
	}
	if err := write(manifestEntry, zip.Deflate, manifest); err != nil {
		return err
	}
	for _, e := range wb.entries {
		if err := write(e.name, e.method, e.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Bytes returns the encoded workbook.
func (wb *Workbook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := wb.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile saves the workbook to path through a temporary file in the
// same directory, so readers never observe a partial archive.
func (wb *Workbook) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".casemap-*.xmind")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := wb.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (wb *Workbook) encodeContent() ([]byte, error) {
	sheets := make([]json.RawMessage, 0, len(wb.Sheets))
	for i, s := range wb.Sheets {
		raw, err := encodeSheet(s)
		if err != nil {
			return nil, fmt.Errorf("sheet %d: %w", i, err)
		}
		sheets = append(sheets, raw)
	}
	return json.Marshal(sheets)
}

func decodeSheet(raw json.RawMessage) (*Sheet, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode sheet: %w", err)
	}
	s := &Sheet{}
	if v, ok := fields["id"]; ok {
		if err := json.Unmarshal(v, &s.ID); err != nil {
			return nil, fmt.Errorf("decode sheet id: %w", err)
		}
	}
	if v, ok := fields["title"]; ok {
		if err := json.Unmarshal(v, &s.Title); err != nil {
			return nil, fmt.Errorf("decode sheet title: %w", err)
		}
	}
	if v, ok := fields["rootTopic"]; ok {
		root, err := decodeTopic(v)
		if err != nil {
			return nil, err
		}
		s.Root = root
	}
	delete(fields, "id")
	delete(fields, "title")
	delete(fields, "class")
	delete(fields, "rootTopic")
	if len(fields) > 0 {
		s.Extra = fields
	}
	return s, nil
}

func encodeSheet(s *Sheet) (json.RawMessage, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	out := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["id"] = s.ID
	out["class"] = "sheet"
	out["title"] = s.Title
	if s.Root != nil {
		root, err := encodeTopic(s.Root)
		if err != nil {
			return nil, err
		}
		out["rootTopic"] = root
	}
	return json.Marshal(out)
}

func encodeManifest(names []string) ([]byte, error) {
	files := make(map[string]struct{}, len(names))
	for _, n := range names {
		files[n] = struct{}{}
	}
	return json.Marshal(map[string]any{"file-entries": files})
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
