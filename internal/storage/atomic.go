package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// tmpSeq makes temp names unique within the process, so two rapid writes to
// the same target never share a temp file before either rename lands.
var tmpSeq atomic.Uint64

// beforeRename runs after the temp file is complete and before it is renamed
// onto the target. Tests set it to simulate an interruption at that point.
var beforeRename func(tmp, target string) error

// WriteJSON serializes v and writes it atomically to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, data)
}

// WriteFile atomically writes data: tmp file → fsync → rename. The target is
// left either untouched or fully replaced, never partially written.
func WriteFile(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteFrom atomically copies r into path.
func WriteFrom(path string, r io.Reader) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

func tempName(path string) string {
	dir, base := filepath.Split(path)
	seq := tmpSeq.Add(1)
	return filepath.Join(dir, "."+base+"."+strconv.Itoa(os.Getpid())+"."+strconv.FormatUint(seq, 10)+".tmp")
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmpName := tempName(path)
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if beforeRename != nil {
		if err := beforeRename(tmpName, path); err != nil {
			return fmt.Errorf("storage: interrupted: %w", err)
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
