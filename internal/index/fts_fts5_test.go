//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM books_fts`).Scan(&count); err != nil {
		t.Fatalf("books_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertBook(book("/lib/f.pdf", "Powerful Searching Techniques", 1)); err != nil {
		t.Fatalf("UpsertBook: %v", err)
	}

	results, err := db.Search("searching", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if !strings.Contains(results[0].Snippet, "<b>") {
		t.Errorf("snippet missing highlight: %q", results[0].Snippet)
	}
}

func TestFTS5_DeleteRemovesEntry(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(book("/lib/d.pdf", "Ephemeral Volume", 1))
	_ = db.DeleteBook("/lib/d.pdf")

	results, err := db.Search("ephemeral", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("deleted book still searchable: %+v", results)
	}
}

func TestFTS5_DiacriticsIgnored(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(book("/lib/c.pdf", "Café Society", 1))

	results, err := db.Search("cafe", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected diacritic-insensitive hit, got %+v", results)
	}
}
