package replica

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

func TestReadAbsentIsNotError(t *testing.T) {
	d := NewDir[models.Progress](Local, filepath.Join(t.TempDir(), "Progress"), true)
	rec, found, err := d.Read("abc123")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, models.Progress{}, rec)
}

func TestWriteRead(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Progress")
	d := NewDir[models.Progress](Local, root, true)

	want := models.NewProgress("abc123", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	want.CurrentPage = 7
	want.Version = 3
	require.NoError(t, d.Write("abc123", want))

	got, found, err := d.Read("abc123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
	assert.FileExists(t, filepath.Join(root, "abc123.json"))

	hashes, err := d.Hashes()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, hashes)
}

func TestReadCorruptRecord(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "abc.json"), []byte("{"), 0o644))
	d := NewDir[models.Progress](Central, root, true)

	_, _, err := d.Read("abc")
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestInvalidHashRejected(t *testing.T) {
	d := NewDir[models.Progress](Local, t.TempDir(), true)
	for _, h := range []string{"", "../escape", "ABC", "a.b"} {
		_, _, err := d.Read(h)
		assert.ErrorIs(t, err, apperr.ErrInvalid, h)
		assert.ErrorIs(t, d.Write(h, models.Progress{}), apperr.ErrInvalid, h)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	d := NewDir[models.Progress](Local, t.TempDir(), true)
	require.NoError(t, d.Write("ff", models.Progress{Hash: "ff"}))
	require.NoError(t, d.Delete("ff"))
	require.NoError(t, d.Delete("ff"))

	_, found, err := d.Read("ff")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAvailable(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "Progress")

	assert.False(t, NewDir[models.Progress](Central, root, true).Available(), "missing dir")

	enabled := NewDir[models.Progress](Central, root, true)
	require.NoError(t, enabled.Ensure())
	assert.True(t, enabled.Available())

	assert.False(t, NewDir[models.Progress](Central, root, false).Available(), "disabled")
}

func TestHashesOnMissingDir(t *testing.T) {
	d := NewDir[models.Progress](Central, filepath.Join(t.TempDir(), "none"), true)
	hashes, err := d.Hashes()
	require.NoError(t, err)
	assert.Empty(t, hashes)
}
