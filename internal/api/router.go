package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/bookservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *bookservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	fh := NewFileHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/books", h.ListBooks)
	r.Post("/books/scan", h.ScanBooks)
	r.Post("/books/import", h.ImportBook)
	r.Post("/books/upload", fh.Upload)
	r.Get("/books/file", fh.ServeFile)
	r.Get("/books/info", h.BookInfo)
	r.Get("/books/outline", h.BookOutline)
	r.Post("/books/invalidate", h.Invalidate)
	r.Post("/books/rename", h.RenameBook)
	r.Post("/books/delete", h.DeleteBook)
	r.Get("/books/search", h.Search)

	// Progress.
	r.Post("/progress/sync", h.SyncAll)
	r.Get("/progress/{hash}", h.LoadProgress)
	r.Put("/progress/{hash}", h.SaveProgress)
	r.Delete("/progress/{hash}", h.DeleteProgress)
	r.Post("/progress/{hash}/sync", h.SyncProgress)
	r.Get("/replication", h.Replication)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
