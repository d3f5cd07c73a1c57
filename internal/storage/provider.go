// Package storage holds the durable record writer and the books-directory
// abstraction.
package storage

// Provider is the interface for books-directory file operations. Paths
// returned and accepted are absolute.
type Provider interface {
	// Root returns the books directory.
	Root() string
	// List returns every PDF directly inside the books directory.
	List() ([]Entry, error)
	// Contains returns the canonical path if path lies inside the books directory.
	Contains(path string) (string, error)
	// Import copies an external PDF into the books directory.
	Import(src string) (string, error)
	// Rename renames a book within the books directory and returns the new path.
	Rename(path, newName string) (string, error)
	// Delete removes a book and returns the canonical path it had.
	Delete(path string) (string, error)
}

var _ Provider = (*FS)(nil)
