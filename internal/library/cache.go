// Package library caches parsed document metadata on top of the content
// identity cache.
package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/identity"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/pdfdoc"
)

// SlowExtract is the extraction time above which a miss is logged.
const SlowExtract = 200 * time.Millisecond

type cacheKey struct {
	path    string
	modTime int64 // UnixNano, the exact modification timestamp
}

// Cache maps (path, modification time) to the metadata extracted from the
// file at that state. It holds at most one live entry per path in practice:
// every miss evicts older entries for the same path.
type Cache struct {
	ids     *identity.Cache
	parser  pdfdoc.Parser
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[cacheKey]models.Book
}

// NewCache returns an empty metadata cache. ids supplies content hashes and
// parser reads page counts and titles.
func NewCache(ids *identity.Cache, parser pdfdoc.Parser, logger *slog.Logger, m *metrics.Metrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		ids:     ids,
		parser:  parser,
		logger:  logger,
		metrics: m,
		entries: make(map[cacheKey]models.Book),
	}
}

// Extract returns the metadata of the PDF at path, parsing it only when the
// file's modification time has no cached entry.
func (c *Cache) Extract(path string) (models.Book, error) {
	abs := identity.Canonical(path)
	info, err := os.Stat(path)
	if err != nil {
		return models.Book{}, apperr.IO("stat_failed", err)
	}
	key := cacheKey{path: abs, modTime: info.ModTime().UnixNano()}

	c.mu.Lock()
	book, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.metrics.MetadataLookup(true)
		return book, nil
	}
	c.metrics.MetadataLookup(false)

	start := time.Now()
	doc, err := c.parser.Info(path)
	if err != nil {
		return models.Book{}, err
	}
	hash, err := c.ids.HashCached(path)
	if err != nil {
		return models.Book{}, err
	}

	filename := filepath.Base(abs)
	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = stem(filename)
	}
	book = models.Book{
		Path:      abs,
		Filename:  filename,
		Title:     title,
		PageCount: doc.PageCount,
		Hash:      hash,
		FileSize:  uint64(info.Size()),
	}
	if d := time.Since(start); d > SlowExtract {
		c.logger.Info("slow metadata extraction",
			slog.String("path", abs),
			slog.Duration("duration", d),
			slog.Int64("size", info.Size()))
	}

	c.mu.Lock()
	c.evictLocked(abs)
	c.entries[key] = book
	c.mu.Unlock()
	return book, nil
}

// Invalidate drops every metadata entry and every hash-cache entry for
// path. It never fails; call it after a file is moved, renamed or deleted.
func (c *Cache) Invalidate(path string) {
	abs := identity.Canonical(path)

	c.mu.Lock()
	c.evictLocked(abs)
	c.mu.Unlock()

	removed := c.ids.InvalidatePath(abs)
	c.logger.Debug("cache invalidated", slog.String("path", abs), slog.Int("hash_keys", removed))
}

// Cached reports whether any metadata entry exists for path.
func (c *Cache) Cached(path string) bool {
	abs := identity.Canonical(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.path == abs {
			return true
		}
	}
	return false
}

// Len returns the number of metadata entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked(path string) {
	for k := range c.entries {
		if k.path == path {
			delete(c.entries, k)
		}
	}
}

// stem returns name without its extension, or "Untitled" when nothing is
// left.
func stem(name string) string {
	s := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.TrimSpace(s) == "" {
		return "Untitled"
	}
	return s
}
