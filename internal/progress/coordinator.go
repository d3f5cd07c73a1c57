package progress

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/starford/folio/internal/apperr"
)

// DefaultLockTimeout bounds how long an operation waits for the
// coordinator.
const DefaultLockTimeout = 10 * time.Second

// Coordinator serializes every replica read-compare-write sequence in the
// process. Acquisition honors the caller's context and a timeout; failing
// to acquire is an apperr.ErrLockConflict, which callers may recover from.
type Coordinator struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewCoordinator returns a coordinator whose acquisitions give up after
// timeout. Zero or less waits as long as the context allows.
func NewCoordinator(timeout time.Duration) *Coordinator {
	return &Coordinator{sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Do runs fn while holding the exclusion section.
func (c *Coordinator) Do(ctx context.Context, fn func() error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return apperr.LockConflict("lock_conflict", err)
	}
	defer c.sem.Release(1)
	return fn()
}
