package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestHashCachedHitSkipsDigest(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.pdf", "hello")
	c := New(filepath.Join(dir, "hash-cache.json"))

	first, err := c.HashCached(p)
	require.NoError(t, err)
	assert.Equal(t, checksum.Sum([]byte("hello")), first)
	assert.Equal(t, uint64(1), c.Digests())

	second, err := c.HashCached(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), c.Digests(), "hit must not digest again")
}

func TestHashCachedChangedFileRehashes(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.pdf", "v1")
	c := New(filepath.Join(dir, "hash-cache.json"))

	h1, err := c.HashCached(p)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte("version two"), 0o644))
	later := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(p, later, later))

	h2, err := c.HashCached(p)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, uint64(2), c.Digests())
	// The stale key stays until invalidated.
	assert.Equal(t, 2, c.Len())
}

func TestIdenticalContentHashesIdentically(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", "same bytes")
	b := writeFile(t, dir, "b.pdf", "same bytes")
	c := New(filepath.Join(dir, "hash-cache.json"))

	ha, err := c.HashCached(a)
	require.NoError(t, err)
	hb, err := c.HashCached(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, checksum.Size)
}

func TestHashCachedMissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "hash-cache.json"))
	_, err := c.HashCached(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIO)
	assert.Equal(t, "stat_failed", apperr.Reason(err))
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.pdf", "persist me")
	file := filepath.Join(dir, "hash-cache.json")

	_, err := New(file).HashCached(p)
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var stored map[string]string
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored, 1)

	again := New(file)
	_, err = again.HashCached(p)
	require.NoError(t, err)
	assert.Zero(t, again.Digests(), "reloaded cache should hit")
}

func TestCorruptCacheFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "hash-cache.json", "{not json")
	p := writeFile(t, dir, "a.pdf", "content")

	c := New(file)
	assert.Zero(t, c.Len())

	_, err := c.HashCached(p)
	require.NoError(t, err)

	// The next successful write heals the file.
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var stored map[string]string
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored, 1)
}

func TestInvalidatePathLeavesOtherPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", "aaa")
	b := writeFile(t, dir, "b.pdf", "bbb")
	file := filepath.Join(dir, "hash-cache.json")
	c := New(file)

	_, err := c.HashCached(a)
	require.NoError(t, err)
	_, err = c.HashCached(b)
	require.NoError(t, err)

	// A second key for a, as after an edit.
	later := time.Now().Add(10 * time.Second)
	require.NoError(t, os.Chtimes(a, later, later))
	_, err = c.HashCached(a)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	assert.Equal(t, 2, c.InvalidatePath(a))
	keys := c.Keys()
	require.Len(t, keys, 1)
	path, ok := PathOf(keys[0])
	require.True(t, ok)
	assert.Equal(t, Canonical(b), path)

	// The shrunk map was persisted.
	assert.Equal(t, 1, New(file).Len())
}

func TestInvalidatePathIsExact(t *testing.T) {
	dir := t.TempDir()
	short := writeFile(t, dir, "a.pdf", "1")
	long := writeFile(t, dir, "a.pdf.bak.pdf", "2")
	c := New(filepath.Join(dir, "hash-cache.json"))

	_, err := c.HashCached(short)
	require.NoError(t, err)
	_, err = c.HashCached(long)
	require.NoError(t, err)

	assert.Equal(t, 1, c.InvalidatePath(short))
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, c.InvalidatePath(short))
}

func TestPathOf(t *testing.T) {
	cases := map[string]string{
		"/books/a.pdf:1700000000:42":        "/books/a.pdf",
		"/books/vol: two.pdf:1700000000:42": "/books/vol: two.pdf",
		"C:/books/x.pdf:-5:0":               "C:/books/x.pdf",
	}
	for key, want := range cases {
		got, ok := PathOf(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	for _, bad := range []string{"", "nocolon", "/a.pdf:x:1", "/a.pdf:1"} {
		_, ok := PathOf(bad)
		assert.False(t, ok, bad)
	}
}

func TestKeyNormalizesComposition(t *testing.T) {
	mt := time.Unix(1700000000, 0)
	decomposed := "/books/Cafe\u0301.pdf"
	composed := "/books/Caf\u00e9.pdf"
	assert.Equal(t, Key(composed, mt, 7), Key(decomposed, mt, 7))
	assert.Equal(t, "/books/Caf\u00e9.pdf:1700000000:7", Key(composed, mt, 7))
}

func TestEvictionBoundsEntries(t *testing.T) {
	dir := t.TempDir()
	c := New(filepath.Join(dir, "hash-cache.json"), WithMaxEntries(2))

	a := writeFile(t, dir, "a.pdf", "a")
	b := writeFile(t, dir, "b.pdf", "b")
	d := writeFile(t, dir, "d.pdf", "d")

	for _, p := range []string{a, b} {
		_, err := c.HashCached(p)
		require.NoError(t, err)
	}
	// Touch a so b becomes the least recently used.
	_, err := c.HashCached(a)
	require.NoError(t, err)
	_, err = c.HashCached(d)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	digests := c.Digests()
	_, err = c.HashCached(a)
	require.NoError(t, err)
	assert.Equal(t, digests, c.Digests(), "a should still be cached")
	_, err = c.HashCached(b)
	require.NoError(t, err)
	assert.Equal(t, digests+1, c.Digests(), "b should have been evicted")
}

func TestEvictionOrderSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hash-cache.json")

	a := writeFile(t, dir, "a.pdf", "a")
	b := writeFile(t, dir, "b.pdf", "b")
	d := writeFile(t, dir, "d.pdf", "d")

	first := New(file, WithMaxEntries(2))
	for _, p := range []string{b, a} {
		_, err := first.HashCached(p)
		require.NoError(t, err)
	}

	// a is the most recent, even though b sorts after it.
	second := New(file, WithMaxEntries(2))
	_, err := second.HashCached(d)
	require.NoError(t, err)

	var paths []string
	for _, k := range second.Keys() {
		p, ok := PathOf(k)
		require.True(t, ok)
		paths = append(paths, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.pdf", "d.pdf"}, paths)
}
