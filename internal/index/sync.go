package index

import (
	"log/slog"

	"github.com/starford/folio/internal/models"
)

// Sync brings the catalog in line with a completed library scan:
//   - every scanned book is upserted
//   - catalog rows whose path was not scanned are deleted
//
// It returns the removed paths. Per-row failures are logged and skipped.
func Sync(db *DB, books []models.Book, logger *slog.Logger) ([]string, error) {
	indexed, err := db.AllPaths()
	if err != nil {
		return nil, err
	}

	scanned := make(map[string]struct{}, len(books))
	for _, b := range books {
		scanned[b.Path] = struct{}{}
		if err := db.UpsertBook(b); err != nil {
			logger.Warn("sync: upsert failed", slog.String("path", b.Path), slog.String("error", err.Error()))
			continue
		}
	}

	// Remove stale entries.
	var removed []string
	for p := range indexed {
		if _, ok := scanned[p]; ok {
			continue
		}
		if err := db.DeleteBook(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		removed = append(removed, p)
	}

	return removed, nil
}
