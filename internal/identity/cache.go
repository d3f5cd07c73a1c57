// Package identity maps library files to their content hash and keeps a
// persisted cache so unchanged files are never re-read.
package identity

import (
	"bytes"
	"container/list"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/storage"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 10000

// Cache maps "<path>:<mtime secs>:<size>" keys to content hashes. The whole
// map is loaded from disk on first use and rewritten after every insertion.
// Entries beyond the configured bound are evicted least recently used first.
// The file lists keys in recency order, so eviction order survives a
// restart as of the last write; hits alone do not rewrite the file.
type Cache struct {
	file       string
	maxEntries int
	logger     *slog.Logger
	metrics    *metrics.Metrics

	digests atomic.Uint64

	loadOnce sync.Once

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
}

type entry struct {
	key  string
	hash string
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of cached keys. Zero or less disables
// eviction.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithLogger sets the logger used for load and persist warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records lookups and digest timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns a cache persisted at file. Nothing is read until first use.
func New(file string, opts ...Option) *Cache {
	c := &Cache{
		file:       file,
		maxEntries: DefaultMaxEntries,
		logger:     slog.Default(),
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hash computes the content hash of path without consulting the cache.
func (c *Cache) Hash(path string) (string, error) {
	start := time.Now()
	sum, err := checksum.File(path)
	if err != nil {
		return "", err
	}
	c.digests.Add(1)
	c.metrics.Digest(time.Since(start))
	return sum, nil
}

// Digests returns how many full-file digests this cache has computed.
func (c *Cache) Digests() uint64 {
	return c.digests.Load()
}

// HashCached returns the content hash of path, reading the file only when
// its size or modification time differs from every cached key.
func (c *Cache) HashCached(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", apperr.IO("resolve_path_failed", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", apperr.IO("stat_failed", err)
	}
	key := Key(abs, info.ModTime(), info.Size())

	c.ensureLoaded()

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		hash := el.Value.(*entry).hash
		c.mu.Unlock()
		c.metrics.HashLookup(true)
		return hash, nil
	}
	c.mu.Unlock()
	c.metrics.HashLookup(false)

	hash, err := c.Hash(abs)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, hash)
	c.persistLocked()
	return hash, nil
}

// InvalidatePath drops every key whose path component equals path and
// persists the result when anything was removed. It returns the number of
// keys dropped. Persist failures are logged, not returned.
func (c *Cache) InvalidatePath(path string) int {
	abs := Canonical(path)
	c.ensureLoaded()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		if p, ok := PathOf(key); ok && p == abs {
			c.lru.Remove(el)
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.persistLocked()
	}
	return removed
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.ensureLoaded()
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns a sorted copy of the cached keys.
func (c *Cache) Keys() []string {
	c.ensureLoaded()
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

func (c *Cache) put(key, hash string) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).hash = hash
		c.lru.MoveToFront(el)
		return
	}
	c.entries[key] = c.lru.PushFront(&entry{key: key, hash: hash})
	for c.maxEntries > 0 && c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *Cache) ensureLoaded() {
	c.loadOnce.Do(func() {
		data, err := os.ReadFile(c.file)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				c.logger.Warn("hash cache unreadable, starting empty",
					slog.String("file", c.file), slog.String("error", err.Error()))
			}
			return
		}
		stored, err := decodeOrdered(data)
		if err != nil {
			c.logger.Warn("hash cache corrupt, starting empty",
				slog.String("file", c.file), slog.String("error", err.Error()))
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		for _, e := range stored {
			c.put(e.key, e.hash)
		}
	})
}

// decodeOrdered reads the flat JSON map keeping the members in file order.
func decodeOrdered(data []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("identity: hash cache is not a JSON object")
	}
	var out []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("identity: hash cache key is not a string")
		}
		var hash string
		if err := dec.Decode(&hash); err != nil {
			return nil, err
		}
		out = append(out, entry{key: key, hash: hash})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// persistLocked rewrites the whole map, least recently used key first, so a
// reload restores the eviction order as of this write. Callers hold c.mu.
func (c *Cache) persistLocked() {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for el := c.lru.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		k, _ := json.Marshal(e.key)
		v, _ := json.Marshal(e.hash)
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}\n")
	if err := storage.WriteFile(c.file, buf.Bytes()); err != nil {
		c.logger.Warn("persist hash cache failed",
			slog.String("file", c.file), slog.String("error", err.Error()))
	}
}

// Key builds the cache key for a file state. The path is made absolute and
// NFC-normalized so the same file reached through differently composed names
// maps to one key.
func Key(path string, modTime time.Time, size int64) string {
	return fmt.Sprintf("%s:%d:%d", Canonical(path), modTime.Unix(), size)
}

// PathOf extracts the path component of a key. Paths may themselves contain
// ':', so the two numeric fields are split off from the right.
func PathOf(key string) (string, bool) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return "", false
	}
	if _, err := strconv.ParseInt(key[i+1:], 10, 64); err != nil {
		return "", false
	}
	j := strings.LastIndexByte(key[:i], ':')
	if j < 0 {
		return "", false
	}
	if _, err := strconv.ParseInt(key[j+1:i], 10, 64); err != nil {
		return "", false
	}
	return key[:j], true
}

// Canonical returns path made absolute and NFC-normalized.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return norm.NFC.String(path)
}
