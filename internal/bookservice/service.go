// Package bookservice coordinates the books directory, the metadata caches,
// the catalog and the progress engine behind one API shared by the HTTP,
// MCP and CLI front ends.
package bookservice

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/identity"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/pdfdoc"
	"github.com/starford/folio/internal/progress"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// DefaultWorkers bounds concurrent extractions during a scan.
const DefaultWorkers = 4

// Events receives change notifications. *sse.Broker implements it.
type Events interface {
	PublishBookEvent(kind, path string)
	PublishProgress(p models.Progress)
}

type noEvents struct{}

func (noEvents) PublishBookEvent(string, string) {}
func (noEvents) PublishProgress(models.Progress) {}

// Service coordinates storage, caches, catalog and progress operations.
type Service struct {
	store   storage.Provider
	db      *index.DB
	lib     *library.Cache
	parser  pdfdoc.Parser
	engine  *progress.Engine
	events  Events
	logger  *slog.Logger
	workers int
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes book and progress changes to ev.
func WithEvents(ev Events) Option {
	return func(s *Service) {
		if ev != nil {
			s.events = ev
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithWorkers sets how many files a scan extracts concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a book service.
func New(store storage.Provider, db *index.DB, lib *library.Cache, parser pdfdoc.Parser, engine *progress.Engine, opts ...Option) *Service {
	s := &Service{
		store:   store,
		db:      db,
		lib:     lib,
		parser:  parser,
		engine:  engine,
		events:  noEvents{},
		logger:  slog.Default(),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BooksDir returns the directory being served.
func (s *Service) BooksDir() string { return s.store.Root() }

// ScanBooks extracts metadata for every PDF in the books directory, brings
// the catalog in line with the result and returns the books sorted by
// case-folded title. Files that fail to extract are logged and skipped.
func (s *Service) ScanBooks(ctx context.Context) ([]models.Book, error) {
	entries, err := s.store.List()
	if err != nil {
		return nil, err
	}

	results := make([]*models.Book, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := s.lib.Extract(e.Path)
			if err != nil {
				s.logger.Warn("scan: skipping book",
					slog.String("path", e.Path),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = &b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	books := make([]models.Book, 0, len(results))
	for _, b := range results {
		if b != nil {
			books = append(books, *b)
		}
	}
	sortBooks(books)

	removed, err := index.Sync(s.db, books, s.logger)
	if err != nil {
		return nil, err
	}
	for _, p := range removed {
		s.lib.Invalidate(p)
	}
	s.logger.Info("scan: complete",
		slog.Int("books", len(books)),
		slog.Int("skipped", len(entries)-len(books)),
		slog.Int("removed", len(removed)))
	return books, nil
}

// Rescan runs ScanBooks and announces the new listing. It is the watcher's
// change callback.
func (s *Service) Rescan(ctx context.Context) {
	if _, err := s.ScanBooks(ctx); err != nil {
		s.logger.Error("rescan failed", slog.String("error", err.Error()))
		return
	}
	s.events.PublishBookEvent(sse.BooksScanned, "")
}

// ImportBook copies the PDF at src into the books directory and catalogs it.
func (s *Service) ImportBook(_ context.Context, src string) (models.Book, error) {
	dest, err := s.store.Import(src)
	if err != nil {
		return models.Book{}, err
	}
	b, err := s.lib.Extract(dest)
	if err != nil {
		return models.Book{}, err
	}
	if err := s.db.UpsertBook(b); err != nil {
		return models.Book{}, err
	}
	s.events.PublishBookEvent(sse.BookAdded, b.Path)
	return b, nil
}

// RenameBook renames a book inside the books directory. Caches for the old
// path are invalidated; the content hash, and therefore the progress
// record, is unchanged.
func (s *Service) RenameBook(_ context.Context, path, newName string) (models.Book, error) {
	oldPath, err := s.store.Contains(path)
	if err != nil {
		return models.Book{}, err
	}
	newPath, err := s.store.Rename(oldPath, newName)
	if err != nil {
		return models.Book{}, err
	}
	s.lib.Invalidate(oldPath)
	if err := s.db.DeleteBook(identity.Canonical(oldPath)); err != nil {
		s.logger.Warn("rename: drop catalog row failed",
			slog.String("path", oldPath), slog.String("error", err.Error()))
	}

	b, err := s.lib.Extract(newPath)
	if err != nil {
		return models.Book{}, err
	}
	if err := s.db.UpsertBook(b); err != nil {
		return models.Book{}, err
	}
	s.events.PublishBookEvent(sse.BookRenamed, b.Path)
	return b, nil
}

// DeleteBook removes a book file, its cache entries, its catalog row and
// both progress records. When hash is empty the catalog's hash is used.
func (s *Service) DeleteBook(ctx context.Context, path, hash string) error {
	abs, err := s.store.Contains(path)
	if err != nil {
		return err
	}
	key := identity.Canonical(abs)
	if hash == "" {
		if row, err := s.db.GetBook(key); err == nil && row != nil {
			hash = row.Hash
		}
	}
	if _, err := s.store.Delete(abs); err != nil {
		return err
	}
	s.lib.Invalidate(abs)
	if err := s.db.DeleteBook(key); err != nil {
		s.logger.Warn("delete: drop catalog row failed",
			slog.String("path", abs), slog.String("error", err.Error()))
	}
	s.events.PublishBookEvent(sse.BookRemoved, key)

	if hash == "" {
		return nil
	}
	return s.engine.Delete(ctx, hash)
}

// Info returns the metadata of the PDF at path through the metadata cache.
func (s *Service) Info(_ context.Context, path string) (models.Book, error) {
	if path == "" {
		return models.Book{}, apperr.Invalidf("path_empty", "")
	}
	return s.lib.Extract(path)
}

// Outline returns the bookmark tree of the PDF at path.
func (s *Service) Outline(_ context.Context, path string) ([]models.OutlineItem, error) {
	if path == "" {
		return nil, apperr.Invalidf("path_empty", "")
	}
	return s.parser.Outline(path)
}

// Invalidate drops every cached entry for path. It never fails.
func (s *Service) Invalidate(path string) {
	s.lib.Invalidate(path)
}

// ListBooks returns one page of the catalog.
func (s *Service) ListBooks(_ context.Context, limit, offset int, sortBy string) ([]models.Book, int, error) {
	return s.db.ListBooks(limit, offset, sortBy)
}

// Search finds catalog entries by title or file name.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if query == "" {
		return []index.SearchResult{}, nil
	}
	return s.db.Search(query, limit)
}

// Ensurer creates a directory on demand. *replica.Dir implements it.
type Ensurer interface {
	Ensure() error
}

// EnsureDirectories creates the books directory and each replica directory.
// Call it before the books directory is opened.
func EnsureDirectories(booksDir string, dirs ...Ensurer) error {
	if err := os.MkdirAll(booksDir, 0o755); err != nil {
		return apperr.IO("create_dir_failed", err)
	}
	for _, d := range dirs {
		if err := d.Ensure(); err != nil {
			return err
		}
	}
	return nil
}

func sortBooks(books []models.Book) {
	sort.SliceStable(books, func(i, j int) bool {
		ki, kj := models.TitleKey(books[i].Title), models.TitleKey(books[j].Title)
		if ki != kj {
			return ki < kj
		}
		return books[i].Path < books[j].Path
	})
}

// BookFile returns the canonical path of a book for serving its bytes. The
// path must lie inside the books directory.
func (s *Service) BookFile(path string) (string, error) {
	return s.store.Contains(path)
}
