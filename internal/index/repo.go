package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/folio/internal/models"
)

// Sort orders accepted by ListBooks.
const (
	SortTitle = "title"
	SortSize  = "size"
	SortPath  = "path"
)

var sortClauses = map[string]string{
	SortTitle: "title_key ASC, path ASC",
	SortSize:  "file_size DESC, path ASC",
	SortPath:  "path ASC",
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertBook inserts or replaces a book and its FTS entry within a transaction.
func (db *DB) UpsertBook(b models.Book) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO books (path, filename, title, title_key, page_count, hash, file_size, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename   = excluded.filename,
			title      = excluded.title,
			title_key  = excluded.title_key,
			page_count = excluded.page_count,
			hash       = excluded.hash,
			file_size  = excluded.file_size,
			indexed_at = excluded.indexed_at
	`, b.Path, b.Filename, b.Title, models.TitleKey(b.Title), b.PageCount, b.Hash, b.FileSize, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert book: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, b.Path, b.Title, b.Filename); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteBook removes a book and its FTS entry.
func (db *DB) DeleteBook(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM books WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete book: %w", err)
	}

	return tx.Commit()
}

// GetBook returns the catalog row for path, or nil if not indexed.
func (db *DB) GetBook(path string) (*models.Book, error) {
	var b models.Book
	err := db.conn.QueryRow(`
		SELECT path, filename, title, page_count, hash, file_size
		FROM books WHERE path = ?
	`, path).Scan(&b.Path, &b.Filename, &b.Title, &b.PageCount, &b.Hash, &b.FileSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get book: %w", err)
	}
	return &b, nil
}

// ListBooks returns one page of the catalog and the total row count. An
// unknown sort falls back to title order; limit <= 0 returns everything.
func (db *DB) ListBooks(limit, offset int, sort string) ([]models.Book, int, error) {
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count books: %w", err)
	}

	order, ok := sortClauses[sort]
	if !ok {
		order = sortClauses[SortTitle]
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.conn.Query(`
		SELECT path, filename, title, page_count, hash, file_size
		FROM books
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list books: %w", err)
	}
	defer rows.Close()

	out := []models.Book{}
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.Path, &b.Filename, &b.Title, &b.PageCount, &b.Hash, &b.FileSize); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed book path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM books`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// Hashes returns the distinct content hashes in the catalog.
func (db *DB) Hashes() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT hash FROM books WHERE hash != '' ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("index: hashes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
