package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/casemap/internal/doctree"
	"github.com/dgallion1/casemap/internal/mindmap"
	"github.com/dgallion1/casemap/internal/parser"
	"github.com/dgallion1/casemap/internal/pipeline"
)

// readUpload parses a multipart conversion request: the document in "file",
// an optional previous export in "existing", and the mode, root and story
// form values. It answers the client itself and returns false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	// Two files plus 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return pipeline.Request{}, false
	}

	mode, err := pipeline.ParseMode(r.FormValue("mode"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return pipeline.Request{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	data, ok := s.readPart(w, file)
	if !ok {
		return pipeline.Request{}, false
	}

	req := pipeline.Request{
		Mode:     mode,
		Filename: filename,
		Data:     data,
		Root:     strings.TrimSpace(r.FormValue("root")),
		Story:    strings.TrimSpace(r.FormValue("story")),
	}

	if prev, _, err := r.FormFile("existing"); err == nil {
		defer prev.Close()
		if req.Existing, ok = s.readPart(w, prev); !ok {
			return pipeline.Request{}, false
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		jsonError(w, "invalid existing export: "+err.Error(), http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	return req, true
}

func (s *Server) readPart(w http.ResponseWriter, f multipart.File) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return data, true
}

// conversionError maps a conversion failure to a client answer.
func conversionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, doctree.ErrNoContent):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, mindmap.ErrNoRoot):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, "conversion failed: "+err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Browsers on Windows may send the full client path.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
