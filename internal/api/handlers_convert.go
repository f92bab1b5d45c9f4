package api

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/dgallion1/casemap/internal/pipeline"
)

const workbookContentType = "application/vnd.xmind.workbook"

// handleConvert converts the upload synchronously and answers with the
// workbook itself.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readUpload(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if !ok {
		return
	}

	out, err := s.orchestrator.Converter().Convert(r.Context(), req, nil)
	if err != nil {
		s.log.Warn("conversion failed", "filename", req.Filename, "error", err)
		conversionError(w, err)
		return
	}
	writeWorkbook(w, out)
}

// handleInspect answers with the parsed records or outline as JSON.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readUpload(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if !ok {
		return
	}

	in, err := s.orchestrator.Converter().Inspect(req)
	if err != nil {
		conversionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func writeWorkbook(w http.ResponseWriter, out *pipeline.Output) {
	h := w.Header()
	h.Set("Content-Type", workbookContentType)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName})
	if disposition == "" {
		disposition = "attachment"
	}
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Length", strconv.Itoa(len(out.Workbook)))
	h.Set("X-Casemap-Root", mime.QEncoding.Encode("utf-8", out.Root))
	h.Set("X-Casemap-Topics", strconv.Itoa(out.Topics))
	if out.Result != nil {
		h.Set("X-Casemap-Dropped", strconv.Itoa(out.Result.Dropped))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(out.Workbook)
}
