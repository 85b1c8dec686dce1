package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/JonMunkholm/hrpulse/internal/web/templates"
)

// Multipart parsing limits. The body may exceed the file limit by the form
// overhead; the reader enforces the exact file size.
const (
	multipartMemory   = 10 << 20
	multipartOverhead = 1 << 20
)

// handleImport replaces the roster with an uploaded CSV file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.uploadedFile(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	defer closeUpload(r, file)

	res, err := s.service.Import(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Trigger", "roster-changed")
		s.renderHTML(w, r, http.StatusOK, templates.ImportResult(res))
		return
	}
	writeJSON(w, res)
}

// handlePreview compares an uploaded CSV with the roster without storing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.uploadedFile(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	defer closeUpload(r, file)

	preview, err := s.service.Preview(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, preview)
}

// handleImportHistory lists recent import attempts, newest first.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	history := s.service.ImportHistory()
	if isHTMX(r) {
		s.renderHTML(w, r, http.StatusOK, templates.ImportHistory(history))
		return
	}
	writeJSON(w, history)
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}

// uploadedFile extracts the "file" part of a multipart upload. Oversized
// bodies map to ErrFileTooLarge and a missing part to ErrNoFile.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, core.ErrFileTooLarge
		}
		return nil, nil, core.ErrNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, core.ErrNoFile
	}
	return file, header, nil
}

// closeUpload closes the file part and removes multipart temp files.
func closeUpload(r *http.Request, file multipart.File) {
	_ = file.Close()
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
