package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/folio/internal/apperr"
)

// FS implements Provider backed by the books directory on the local file
// system. The directory may itself live inside a cloud-synced folder.
type FS struct {
	root string // canonical absolute path to the books directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute books directory.
func (f *FS) Root() string { return f.root }

// IsPDF reports whether name has a .pdf extension, ignoring case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// isPlaceholder matches cloud-sync stubs such as ".Book.pdf.icloud" that
// stand in for files not yet downloaded.
func isPlaceholder(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".icloud")
}

// List returns every PDF directly inside the books directory.
func (f *FS) List() ([]Entry, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, apperr.IO("read_dir_failed", err)
	}
	var out []Entry
	for _, d := range entries {
		name := d.Name()
		if d.IsDir() || isPlaceholder(name) || !IsPDF(name) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Vanished between ReadDir and Info.
			continue
		}
		out = append(out, Entry{
			Path:    filepath.Join(f.root, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Contains canonicalizes path and rejects anything outside the books
// directory. It returns the canonical path.
func (f *FS) Contains(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", apperr.IO("resolve_path_failed", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", apperr.IO("resolve_path_failed", err)
	}
	if !strings.HasPrefix(canonical, f.root+string(os.PathSeparator)) {
		return "", apperr.Invalidf("file_not_in_books", "%s", path)
	}
	return canonical, nil
}

// Import copies the PDF at src into the books directory, keeping its file
// name. An existing destination is never overwritten.
func (f *FS) Import(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.NotFound("source_not_exist", err)
		}
		return "", apperr.IO("copy_failed", err)
	}
	defer in.Close()

	name := filepath.Base(src)
	if name == "." || name == string(os.PathSeparator) {
		return "", apperr.Invalidf("invalid_filename", "%s", src)
	}
	dest := filepath.Join(f.root, name)
	if _, err := os.Stat(dest); err == nil {
		return "", apperr.AlreadyExists("file_already_exists", name)
	}
	if err := WriteFrom(dest, in); err != nil {
		return "", apperr.IO("copy_failed", err)
	}
	return dest, nil
}

// Rename gives the book at path a new file name inside the books directory.
// A missing .pdf extension is appended; an existing file is never replaced.
func (f *FS) Rename(path, newName string) (string, error) {
	oldPath, err := f.Contains(path)
	if err != nil {
		return "", err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return "", apperr.Invalidf("filename_empty", "")
	}
	if strings.ContainsAny(newName, `/\`) {
		return "", apperr.Invalidf("filename_invalid_separator", "%s", newName)
	}
	if !IsPDF(newName) {
		newName += ".pdf"
	}
	newPath := filepath.Join(f.root, newName)
	if _, err := os.Stat(newPath); err == nil {
		return "", apperr.AlreadyExists("rename_file_exists", newName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", apperr.IO("rename_failed", err)
	}
	return newPath, nil
}

// TrashDir is the directory inside the books directory that deleted books
// are moved to. List skips it.
const TrashDir = ".trash"

// Delete moves the book at path into TrashDir so it can be recovered. A name
// already taken in the trash gets a timestamp suffix.
func (f *FS) Delete(path string) (string, error) {
	abs, err := f.Contains(path)
	if err != nil {
		return "", err
	}
	trash := filepath.Join(f.root, TrashDir)
	if err := os.MkdirAll(trash, 0o755); err != nil {
		return "", apperr.IO("delete_failed", err)
	}
	name := filepath.Base(abs)
	dest := filepath.Join(trash, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		stamp := time.Now().UTC().Format("20060102T150405.000000000")
		dest = filepath.Join(trash, strings.TrimSuffix(name, ext)+"-"+stamp+ext)
	}
	if err := os.Rename(abs, dest); err != nil {
		return "", apperr.IO("delete_failed", err)
	}
	return abs, nil
}

// Entry describes one PDF found in the books directory.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}
