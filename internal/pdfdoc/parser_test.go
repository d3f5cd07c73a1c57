package pdfdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/testutil"
)

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WritePDF(t, dir, "book.pdf", testutil.PDFSpec{Pages: 3, Title: "Moby Dick"})

	info, err := PDF{}.Info(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), info.PageCount)
	assert.Equal(t, "Moby Dick", info.Title)
}

func TestInfoWithoutTitle(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WritePDF(t, dir, "untitled.pdf", testutil.PDFSpec{Pages: 1})

	info, err := PDF{}.Info(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), info.PageCount)
	assert.Empty(t, info.Title)
}

func TestInfoMalformed(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(p, []byte("this is not a pdf at all"), 0o644))

	_, err := PDF{}.Info(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrParse)
	assert.Equal(t, "parse_failed", apperr.Reason(err))
}

func TestInfoMissingFile(t *testing.T) {
	_, err := PDF{}.Info(filepath.Join(t.TempDir(), "gone.pdf"))
	assert.ErrorIs(t, err, apperr.ErrIO)
}

func TestOutline(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WritePDF(t, dir, "outlined.pdf", testutil.PDFSpec{
		Pages: 4,
		Outline: []testutil.OutlineEntry{
			{Title: "Part One", Page: 1, Children: []testutil.OutlineEntry{
				{Title: "Chapter 1", Page: 2},
				{Title: "Chapter 2", Page: 3},
			}},
			{Title: "Appendix", Page: 4},
			{Title: "Nowhere"},
		},
	})

	items, err := PDF{}.Outline(p)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Part One", items[0].Title)
	assert.Equal(t, uint32(1), items[0].Page)
	require.Len(t, items[0].Children, 2)
	assert.Equal(t, "Chapter 2", items[0].Children[1].Title)
	assert.Equal(t, uint32(3), items[0].Children[1].Page)

	assert.Equal(t, uint32(4), items[1].Page)
	assert.Empty(t, items[1].Children)
	assert.Equal(t, uint32(1), items[2].Page, "unresolvable destination defaults to page 1")
}

func TestOutlineAbsent(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WritePDF(t, dir, "flat.pdf", testutil.PDFSpec{Pages: 2})

	items, err := PDF{}.Outline(p)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestOutlineDepthCap(t *testing.T) {
	var nest func(d int) []testutil.OutlineEntry
	nest = func(d int) []testutil.OutlineEntry {
		if d == 0 {
			return nil
		}
		return []testutil.OutlineEntry{{Title: "level", Page: 1, Children: nest(d - 1)}}
	}
	dir := t.TempDir()
	p := testutil.WritePDF(t, dir, "deep.pdf", testutil.PDFSpec{Pages: 1, Outline: nest(MaxOutlineDepth + 5)})

	items, err := PDF{}.Outline(p)
	require.NoError(t, err)

	depth := 0
	for level := items; len(level) > 0; level = level[0].Children {
		depth++
	}
	assert.Equal(t, MaxOutlineDepth, depth)
}
