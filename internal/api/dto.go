package api

import (
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
)

// Book is the book metadata response type (aliased from the domain layer).
type Book = models.Book

// Progress is the reading progress payload (aliased from the domain layer).
type Progress = models.Progress

// OutlineItem is one bookmark in an outline response.
type OutlineItem = models.OutlineItem

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// BookListResponse wraps paginated book listings.
type BookListResponse struct {
	Books []Book `json:"books" validate:"required"`
	Total int    `json:"total" example:"42" validate:"required"`
}

// OutlineResponse wraps a document outline.
type OutlineResponse struct {
	Path    string        `json:"path" validate:"required"`
	Outline []OutlineItem `json:"outline" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// ImportRequest is the request body for importing a PDF by path.
type ImportRequest struct {
	Src string `json:"src" example:"/home/me/Downloads/book.pdf" validate:"required"`
}

// PathRequest names one book.
type PathRequest struct {
	Path string `json:"path" example:"/library/Books/book.pdf" validate:"required"`
}

// RenameRequest is the request body for renaming a book.
type RenameRequest struct {
	Path    string `json:"path" validate:"required"`
	NewName string `json:"new_name" example:"Moby Dick" validate:"required"`
}

// DeleteRequest is the request body for deleting a book. Hash is optional;
// the catalog's hash is used when it is empty.
type DeleteRequest struct {
	Path string `json:"path" validate:"required"`
	Hash string `json:"hash,omitempty"`
}

// ProgressResponse wraps a possibly absent progress record.
type ProgressResponse struct {
	Progress *Progress `json:"progress"`
}

// SyncResponse reports the record Local adopted from Central, if any.
type SyncResponse struct {
	Adopted *Progress `json:"adopted"`
}

// SyncBatchRequest lists the hashes to reconcile. An empty list means every
// hash in the catalog.
type SyncBatchRequest struct {
	Hashes []string `json:"hashes"`
}

// SyncBatchResponse lists the hashes whose Local record changed.
type SyncBatchResponse struct {
	Changed []string `json:"changed" validate:"required"`
}

// ReplicationResponse reports whether the Central replica is usable.
type ReplicationResponse struct {
	Available bool `json:"available"`
}

// UploadResponse is returned after a successful PDF upload.
type UploadResponse struct {
	Book Book  `json:"book" validate:"required"`
	Size int64 `json:"size" example:"12345" validate:"required"`
}
