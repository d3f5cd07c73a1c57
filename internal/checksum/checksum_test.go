package checksum

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/folio/internal/apperr"
)

func TestSumKnownVector(t *testing.T) {
	// sha256("abc") = ba7816bf8f01cfea414140de5dae2223...
	if got := Sum([]byte("abc")); got != "ba7816bf8f01cfea" {
		t.Errorf("Sum = %q", got)
	}
}

func TestFileMatchesSumAndIgnoresName(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("pdf bytes ", 5000) // spans several buffers
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "renamed copy.pdf")
	_ = os.WriteFile(a, []byte(content), 0o644)
	_ = os.WriteFile(b, []byte(content), 0o600)

	ha, err := File(a)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	hb, err := File(b)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if ha != hb {
		t.Errorf("identical content hashed differently: %s vs %s", ha, hb)
	}
	if ha != Sum([]byte(content)) {
		t.Errorf("streaming hash differs from Sum")
	}
	if len(ha) != Size {
		t.Errorf("len = %d, want %d", len(ha), Size)
	}
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
