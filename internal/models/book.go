// Package models defines the domain types for Folio.
package models

import "golang.org/x/text/cases"

// Book is the derived metadata of one PDF in the library. It is recomputed
// from the file whenever the cache misses and is never authoritative.
type Book struct {
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	PageCount uint32 `json:"page_count"`
	Hash      string `json:"hash"`
	FileSize  uint64 `json:"file_size"`
}

// OutlineItem is one node of a document's outline (bookmarks) tree.
type OutlineItem struct {
	Title    string        `json:"title"`
	Page     uint32        `json:"page"`
	Children []OutlineItem `json:"children"`
}

// TitleKey is the case-folded form of title used for sorting, so "apple"
// and "Zebra" order the way a reader expects.
func TitleKey(title string) string {
	return cases.Fold().String(title)
}
