// Package checksum computes content hashes used as document identity.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/starford/folio/internal/apperr"
)

// Size is the length in hex characters of a content hash: the first 8 bytes
// of a SHA-256 digest.
const Size = 16

const bufSize = 8192

// Sum returns the truncated hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:Size/2])
}

// Reader streams r through SHA-256 with a fixed-size buffer and returns the
// truncated hex digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)[:Size/2]), nil
}

// File hashes the full contents of the file at path. Two byte-identical files
// hash identically regardless of name or metadata.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.IO("open_failed", err)
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", apperr.IO("read_failed", err)
	}
	return sum, nil
}
