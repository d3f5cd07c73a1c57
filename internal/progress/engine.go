// Package progress keeps reading progress consistent between the Local and
// Central replicas.
//
// Save only ever writes Local. Central is written exclusively by Reconcile,
// which compares the two records for a hash and copies the winner onto the
// loser. Every replica access goes through one Coordinator, so concurrent
// calls within the process never interleave a read-compare-write.
package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/replica"
)

// Store is a progress replica.
type Store = replica.Store[models.Progress]

// Engine runs save, load and reconcile over a Local and a Central store.
// It keeps no state between calls beyond the stored records.
type Engine struct {
	local     Store
	central   Store
	strategy  Strategy
	coord     *Coordinator
	bumpOnTie bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy replaces the default VersionStrategy.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithCoordinator shares a coordinator instead of creating one.
func WithCoordinator(c *Coordinator) Option {
	return func(e *Engine) { e.coord = c }
}

// WithBumpOnTie makes a timestamp tie-break write the winner with its
// version incremented, on both replicas. Off by default: the winner is
// copied with its version unchanged.
func WithBumpOnTie(on bool) Option {
	return func(e *Engine) { e.bumpOnTie = on }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records saves and reconcile outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now for records saved without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine over local and central.
func NewEngine(local, central Store, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		central:  central,
		strategy: VersionStrategy{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.coord == nil {
		e.coord = NewCoordinator(DefaultLockTimeout)
	}
	return e
}

// ReplicationAvailable reports whether Central can be used.
func (e *Engine) ReplicationAvailable() bool {
	return e.central.Available()
}

// Save writes p to Local with its version set to the current Local version
// plus one. LastRead is normalized to models.TimestampLayout; an empty value
// is set to now. The stored record is returned.
func (e *Engine) Save(ctx context.Context, p models.Progress) (models.Progress, error) {
	if p.LastRead == "" {
		p.LastRead = models.FormatTimestamp(e.now())
	}
	ts, err := models.NormalizeTimestamp(p.LastRead)
	if err != nil {
		return models.Progress{}, apperr.Invalid("invalid_timestamp", err)
	}
	p.LastRead = ts
	if err := p.Validate(); err != nil {
		return models.Progress{}, apperr.Invalid("invalid_progress", err)
	}

	err = e.coord.Do(ctx, func() error {
		current, found, err := e.local.Read(p.Hash)
		if err != nil {
			return err
		}
		p.Version = 1
		if found {
			p.Version = current.Version + 1
		}
		return e.local.Write(p.Hash, p)
	})
	if err != nil {
		return models.Progress{}, err
	}
	e.metrics.Save()
	return p, nil
}

// Reconcile brings hash's Local and Central records into agreement. It
// returns Central's record when that record was adopted by Local, and nil
// when Local was already authoritative, was pushed to Central, both sides
// were empty, or Central is unavailable.
func (e *Engine) Reconcile(ctx context.Context, hash string) (*models.Progress, error) {
	if !models.ValidHash(hash) {
		return nil, apperr.Invalidf("invalid_hash", "%q", hash)
	}
	var adopted *models.Progress
	err := e.coord.Do(ctx, func() error {
		var err error
		adopted, err = e.reconcileLocked(hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adopted, nil
}

func (e *Engine) reconcileLocked(hash string) (*models.Progress, error) {
	if !e.central.Available() {
		e.metrics.Reconcile(metrics.OutcomeUnavailable)
		return nil, nil
	}

	local, err := e.read(e.local, hash)
	if err != nil {
		e.metrics.Reconcile(metrics.OutcomeError)
		return nil, err
	}
	central, err := e.read(e.central, hash)
	if err != nil {
		e.metrics.Reconcile(metrics.OutcomeError)
		return nil, err
	}

	d := e.strategy.Decide(local, central)
	var winner *models.Progress
	switch d.Action {
	case PushLocal:
		winner = local
	case PullCentral:
		winner = central
	default:
		e.metrics.Reconcile(metrics.OutcomeNoop)
		return nil, nil
	}

	rec := *winner
	if d.Tie && e.bumpOnTie {
		rec.Version++
		// Both sides take the bumped record so they agree afterwards.
		if err := e.write(d.Action, hash, rec, true); err != nil {
			return nil, err
		}
	} else if err := e.write(d.Action, hash, rec, false); err != nil {
		return nil, err
	}

	e.logger.Debug("progress reconciled",
		slog.String("hash", hash),
		slog.String("action", d.Action.String()),
		slog.Bool("tie", d.Tie),
		slog.Uint64("version", rec.Version))

	if d.Action == PullCentral {
		e.metrics.Reconcile(metrics.OutcomePull)
		return &rec, nil
	}
	e.metrics.Reconcile(metrics.OutcomePush)
	return nil, nil
}

// write copies rec onto the losing side of action, or onto both sides.
func (e *Engine) write(action Action, hash string, rec models.Progress, both bool) error {
	var err error
	switch {
	case both:
		if err = e.local.Write(hash, rec); err == nil {
			err = e.central.Write(hash, rec)
		}
	case action == PushLocal:
		err = e.central.Write(hash, rec)
	default:
		err = e.local.Write(hash, rec)
	}
	if err != nil {
		e.metrics.Reconcile(metrics.OutcomeError)
	}
	return err
}

func (e *Engine) read(s Store, hash string) (*models.Progress, error) {
	rec, found, err := s.Read(hash)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// Load returns the authoritative record for hash after reconciling, or nil
// when neither replica has one. A record found only on Central is copied
// into Local.
func (e *Engine) Load(ctx context.Context, hash string) (*models.Progress, error) {
	if !models.ValidHash(hash) {
		return nil, apperr.Invalidf("invalid_hash", "%q", hash)
	}
	var out *models.Progress
	err := e.coord.Do(ctx, func() error {
		adopted, err := e.reconcileLocked(hash)
		if err != nil {
			return err
		}
		if adopted != nil {
			out = adopted
			return nil
		}

		local, err := e.read(e.local, hash)
		if err != nil {
			return err
		}
		if local != nil {
			out = local
			return nil
		}

		if !e.central.Available() {
			return nil
		}
		central, err := e.read(e.central, hash)
		if err != nil || central == nil {
			return err
		}
		if err := e.local.Write(hash, *central); err != nil {
			return err
		}
		out = central
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SyncBatch reconciles each hash independently. A failing hash is logged and
// skipped. It returns the hashes whose Local record was replaced by
// Central's.
func (e *Engine) SyncBatch(ctx context.Context, hashes []string) []string {
	var changed []string
	for i, hash := range hashes {
		if ctx.Err() != nil {
			e.logger.Warn("batch sync cancelled",
				slog.Int("remaining", len(hashes)-i),
				slog.String("error", ctx.Err().Error()))
			break
		}
		adopted, err := e.Reconcile(ctx, hash)
		if err != nil {
			e.metrics.BatchFailure()
			e.logger.Warn("sync failed for hash, skipping",
				slog.String("hash", hash),
				slog.String("error", err.Error()))
			continue
		}
		if adopted != nil {
			changed = append(changed, hash)
		}
	}
	return changed
}

// Delete removes hash's record from both replicas. Removal failures are
// logged and otherwise ignored; only a coordinator failure is returned.
func (e *Engine) Delete(ctx context.Context, hash string) error {
	if !models.ValidHash(hash) {
		return apperr.Invalidf("invalid_hash", "%q", hash)
	}
	return e.coord.Do(ctx, func() error {
		if err := e.local.Delete(hash); err != nil {
			e.logger.Warn("delete local progress failed",
				slog.String("hash", hash), slog.String("error", err.Error()))
		}
		if !e.central.Available() {
			return nil
		}
		if err := e.central.Delete(hash); err != nil {
			e.logger.Warn("delete central progress failed",
				slog.String("hash", hash), slog.String("error", err.Error()))
		}
		return nil
	})
}
