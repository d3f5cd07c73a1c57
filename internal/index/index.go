package index

import "github.com/starford/folio/internal/models"

// BookIndex defines the interface for catalog operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type BookIndex interface {
	UpsertBook(b models.Book) error
	DeleteBook(path string) error
	GetBook(path string) (*models.Book, error)
	ListBooks(limit, offset int, sort string) ([]models.Book, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	Hashes() ([]string, error)
	Close() error
}

// Verify *DB satisfies BookIndex at compile time.
var _ BookIndex = (*DB)(nil)
