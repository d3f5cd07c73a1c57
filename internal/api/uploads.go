package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/folio/internal/bookservice"
	"github.com/starford/folio/internal/storage"
)

const maxUploadBytes = 200 << 20 // 200 MB

// FileHandler accepts PDF uploads and serves book files.
type FileHandler struct {
	svc *bookservice.Service
}

// NewFileHandler creates a handler importing into and serving from svc.
func NewFileHandler(svc *bookservice.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

// safeName validates that the filename is a plain PDF name (no path
// separators, no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.ContainsAny(cleaned, `/\`) {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !storage.IsPDF(cleaned) {
		return "", fmt.Errorf("not a pdf: %s", name)
	}
	return cleaned, nil
}

// ServeFile handles GET /api/books/file?path=. Only files inside the books
// directory are served.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.svc.BookFile(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, "serve book", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/books/upload (multipart/form-data, field "file").
// The upload is staged in a temporary directory and then imported, so the
// same no-overwrite rule applies as for a path import.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file_field_missing"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_filename"))
		return
	}

	staging, err := os.MkdirTemp("", "folio-upload-*")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("staging_failed"))
		return
	}
	defer os.RemoveAll(staging)

	src := filepath.Join(staging, name)
	dst, err := os.Create(src)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("staging_failed"))
		return
	}
	written, err := io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		slog.Error("upload: write staging file failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("staging_failed"))
		return
	}

	b, err := h.svc.ImportBook(r.Context(), src)
	if err != nil {
		writeError(w, "upload book", err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{Book: b, Size: written})
}
