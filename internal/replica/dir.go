// Package replica stores JSON records keyed by content hash in a directory,
// one file per record. Folio keeps two such directories for reading
// progress: a device-local one and a central one that an external sync
// daemon may replicate between devices.
package replica

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Name identifies a replica.
type Name string

const (
	Local   Name = "local"
	Central Name = "central"
)

// Store is a single-writer key/value store of records keyed by hash.
type Store[T any] interface {
	Name() Name
	// Available reports whether the store may be touched at all.
	Available() bool
	// Read returns the record for hash. A missing record is (zero, false, nil).
	Read(hash string) (T, bool, error)
	Write(hash string, record T) error
	// Delete removes the record for hash. A missing record is not an error.
	Delete(hash string) error
}

// Dir is a Store backed by <root>/<hash>.json files written through the
// atomic writer.
type Dir[T any] struct {
	name    Name
	root    string
	enabled bool
}

var _ Store[models.Progress] = (*Dir[models.Progress])(nil)

// NewDir returns a store rooted at root. A disabled store reports itself
// unavailable regardless of whether root exists.
func NewDir[T any](name Name, root string, enabled bool) *Dir[T] {
	return &Dir[T]{name: name, root: root, enabled: enabled}
}

// Name returns the replica name.
func (d *Dir[T]) Name() Name { return d.name }

// Root returns the record directory.
func (d *Dir[T]) Root() string { return d.root }

// Available is true when the store is enabled and its directory exists.
func (d *Dir[T]) Available() bool {
	if !d.enabled {
		return false
	}
	info, err := os.Stat(d.root)
	return err == nil && info.IsDir()
}

// Ensure creates the record directory.
func (d *Dir[T]) Ensure() error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return apperr.IO("create_dir_failed", err)
	}
	return nil
}

func (d *Dir[T]) path(hash string) (string, error) {
	if !models.ValidHash(hash) {
		return "", apperr.Invalidf("invalid_hash", "%q", hash)
	}
	return filepath.Join(d.root, hash+".json"), nil
}

// Read loads the record for hash.
func (d *Dir[T]) Read(hash string) (T, bool, error) {
	var zero T
	p, err := d.path(hash)
	if err != nil {
		return zero, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, false, nil
		}
		return zero, false, apperr.IO("read_failed", err)
	}
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return zero, false, apperr.Parse("parse_failed", err)
	}
	return rec, true, nil
}

// Write stores record under hash, replacing any previous record atomically.
func (d *Dir[T]) Write(hash string, record T) error {
	p, err := d.path(hash)
	if err != nil {
		return err
	}
	if err := storage.WriteJSON(p, record); err != nil {
		return apperr.IO("write_failed", err)
	}
	return nil
}

// Delete removes the record for hash if present.
func (d *Dir[T]) Delete(hash string) error {
	p, err := d.path(hash)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.IO("delete_failed", err)
	}
	return nil
}

// Hashes lists the hashes that have a record in the store.
func (d *Dir[T]) Hashes() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.IO("read_dir_failed", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		hash := name[:len(name)-len(".json")]
		if models.ValidHash(hash) {
			out = append(out, hash)
		}
	}
	return out, nil
}
