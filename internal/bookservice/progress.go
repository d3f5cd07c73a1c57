package bookservice

import (
	"context"

	"github.com/starford/folio/internal/models"
)

// LoadProgress returns the reconciled progress for hash, or nil when the
// book has never been opened.
func (s *Service) LoadProgress(ctx context.Context, hash string) (*models.Progress, error) {
	return s.engine.Load(ctx, hash)
}

// SaveProgress stores p locally and announces it.
func (s *Service) SaveProgress(ctx context.Context, p models.Progress) (models.Progress, error) {
	saved, err := s.engine.Save(ctx, p)
	if err != nil {
		return models.Progress{}, err
	}
	s.events.PublishProgress(saved)
	return saved, nil
}

// SyncProgress reconciles one hash and returns Central's record when Local
// adopted it.
func (s *Service) SyncProgress(ctx context.Context, hash string) (*models.Progress, error) {
	adopted, err := s.engine.Reconcile(ctx, hash)
	if err != nil {
		return nil, err
	}
	if adopted != nil {
		s.events.PublishProgress(*adopted)
	}
	return adopted, nil
}

// SyncAll reconciles each of hashes, or every hash in the catalog when
// hashes is empty, and returns those whose Local record changed.
func (s *Service) SyncAll(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		var err error
		if hashes, err = s.db.Hashes(); err != nil {
			return nil, err
		}
	}
	changed := s.engine.SyncBatch(ctx, hashes)
	if changed == nil {
		changed = []string{}
	}
	return changed, nil
}

// DeleteProgress removes hash's record from both replicas.
func (s *Service) DeleteProgress(ctx context.Context, hash string) error {
	return s.engine.Delete(ctx, hash)
}

// ReplicationAvailable reports whether the Central replica can be used.
func (s *Service) ReplicationAvailable() bool {
	return s.engine.ReplicationAvailable()
}
