package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/bookservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *bookservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *bookservice.Service) *Handler {
	return &Handler{svc: svc}
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_json"))
		return false
	}
	return true
}

// ListBooks handles GET /api/books.
//
//	@Summary		List cataloged books
//	@Tags			books
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(title, size, path)
//	@Success		200		{object}	BookListResponse
//	@Security		BearerAuth
//	@Router			/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	books, total, err := h.svc.ListBooks(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list books", err)
		return
	}
	writeJSON(w, http.StatusOK, BookListResponse{Books: books, Total: total})
}

// ScanBooks handles POST /api/books/scan.
//
//	@Summary		Rescan the books directory
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	BookListResponse
//	@Security		BearerAuth
//	@Router			/books/scan [post]
func (h *Handler) ScanBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ScanBooks(r.Context())
	if err != nil {
		writeError(w, "scan books", err)
		return
	}
	writeJSON(w, http.StatusOK, BookListResponse{Books: books, Total: len(books)})
}

// ImportBook handles POST /api/books/import.
//
//	@Summary		Copy a PDF into the books directory
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Source file"
//	@Success		201		{object}	Book
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/import [post]
func (h *Handler) ImportBook(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Src == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("src_required"))
		return
	}
	b, err := h.svc.ImportBook(r.Context(), req.Src)
	if err != nil {
		writeError(w, "import book", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// BookInfo handles GET /api/books/info.
//
//	@Summary		Get metadata for a PDF
//	@Tags			books
//	@Produce		json
//	@Param			path	query		string	true	"Absolute file path"
//	@Success		200		{object}	Book
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/info [get]
func (h *Handler) BookInfo(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Info(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, "book info", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// BookOutline handles GET /api/books/outline.
//
//	@Summary		Get the bookmark tree of a PDF
//	@Tags			books
//	@Produce		json
//	@Param			path	query		string	true	"Absolute file path"
//	@Success		200		{object}	OutlineResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/outline [get]
func (h *Handler) BookOutline(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	items, err := h.svc.Outline(r.Context(), path)
	if err != nil {
		writeError(w, "book outline", err)
		return
	}
	writeJSON(w, http.StatusOK, OutlineResponse{Path: path, Outline: items})
}

// Invalidate handles POST /api/books/invalidate.
//
//	@Summary		Drop cached metadata and hashes for a path
//	@Tags			books
//	@Accept			json
//	@Param			body	body	PathRequest	true	"Path to invalidate"
//	@Success		204		"Invalidated"
//	@Security		BearerAuth
//	@Router			/books/invalidate [post]
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path_empty"))
		return
	}
	h.svc.Invalidate(req.Path)
	w.WriteHeader(http.StatusNoContent)
}

// RenameBook handles POST /api/books/rename.
//
//	@Summary		Rename a book inside the books directory
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Book and new name"
//	@Success		200		{object}	Book
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/rename [post]
func (h *Handler) RenameBook(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.svc.RenameBook(r.Context(), req.Path, req.NewName)
	if err != nil {
		writeError(w, "rename book", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBook handles POST /api/books/delete.
//
//	@Summary		Delete a book and its progress
//	@Tags			books
//	@Accept			json
//	@Param			body	body	DeleteRequest	true	"Book to delete"
//	@Success		204		"Deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/delete [post]
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.DeleteBook(r.Context(), req.Path, req.Hash); err != nil {
		writeError(w, "delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/books/search.
//
//	@Summary		Search books by title or file name
//	@Tags			books
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query_required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// LoadProgress handles GET /api/progress/{hash}.
//
//	@Summary		Load reconciled reading progress
//	@Tags			progress
//	@Produce		json
//	@Param			hash	path		string	true	"Content hash"
//	@Success		200		{object}	ProgressResponse
//	@Failure		400		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{hash} [get]
func (h *Handler) LoadProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.LoadProgress(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, "load progress", err)
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{Progress: p})
}

// SaveProgress handles PUT /api/progress/{hash}.
//
//	@Summary		Save reading progress locally
//	@Tags			progress
//	@Accept			json
//	@Produce		json
//	@Param			hash	path		string		true	"Content hash"
//	@Param			body	body		Progress	true	"Progress record; version is assigned"
//	@Success		200		{object}	Progress
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{hash} [put]
func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	var p Progress
	if !decode(w, r, &p) {
		return
	}
	if p.Hash == "" {
		p.Hash = hash
	}
	if p.Hash != hash {
		writeJSON(w, http.StatusBadRequest, errorBody("hash_mismatch"))
		return
	}
	saved, err := h.svc.SaveProgress(r.Context(), p)
	if err != nil {
		writeError(w, "save progress", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// SyncProgress handles POST /api/progress/{hash}/sync.
//
//	@Summary		Reconcile one record between Local and Central
//	@Tags			progress
//	@Produce		json
//	@Param			hash	path		string	true	"Content hash"
//	@Success		200		{object}	SyncResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{hash}/sync [post]
func (h *Handler) SyncProgress(w http.ResponseWriter, r *http.Request) {
	adopted, err := h.svc.SyncProgress(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, "sync progress", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Adopted: adopted})
}

// SyncAll handles POST /api/progress/sync.
//
//	@Summary		Reconcile many records
//	@Tags			progress
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SyncBatchRequest	false	"Hashes; empty means the whole catalog"
//	@Success		200		{object}	SyncBatchResponse
//	@Security		BearerAuth
//	@Router			/progress/sync [post]
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	var req SyncBatchRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	changed, err := h.svc.SyncAll(r.Context(), req.Hashes)
	if err != nil {
		writeError(w, "sync all", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncBatchResponse{Changed: changed})
}

// DeleteProgress handles DELETE /api/progress/{hash}.
//
//	@Summary		Delete a progress record from both replicas
//	@Tags			progress
//	@Param			hash	path	string	true	"Content hash"
//	@Success		204		"Deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{hash} [delete]
func (h *Handler) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProgress(r.Context(), chi.URLParam(r, "hash")); err != nil {
		writeError(w, "delete progress", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Replication handles GET /api/replication.
//
//	@Summary		Report whether the Central replica is usable
//	@Tags			progress
//	@Produce		json
//	@Success		200	{object}	ReplicationResponse
//	@Security		BearerAuth
//	@Router			/replication [get]
func (h *Handler) Replication(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ReplicationResponse{Available: h.svc.ReplicationAvailable()})
}
