package progress

import (
	"strings"
	"time"

	"github.com/starford/folio/internal/models"
)

// Action is what a reconcile does to the two replicas.
type Action int

const (
	// NoOp leaves both replicas as they are.
	NoOp Action = iota
	// PushLocal copies the Local record onto Central.
	PushLocal
	// PullCentral copies the Central record onto Local.
	PullCentral
)

func (a Action) String() string {
	switch a {
	case PushLocal:
		return "push"
	case PullCentral:
		return "pull"
	default:
		return "noop"
	}
}

// Decision is the outcome of comparing the two replicas of one hash.
type Decision struct {
	Action Action
	// Tie is set when both records carried the same version and the
	// timestamp decided.
	Tie bool
}

// Strategy decides how to bring a hash's Local and Central records into
// agreement. A nil record means that replica has none.
type Strategy interface {
	Decide(local, central *models.Progress) Decision
}

// VersionStrategy lets the higher version win. Equal versions fall back to
// the later last_read; equal on both is a no-op.
type VersionStrategy struct{}

var _ Strategy = VersionStrategy{}

// Decide implements Strategy.
func (VersionStrategy) Decide(local, central *models.Progress) Decision {
	switch {
	case local == nil && central == nil:
		return Decision{Action: NoOp}
	case central == nil:
		return Decision{Action: PushLocal}
	case local == nil:
		return Decision{Action: PullCentral}
	}

	switch {
	case local.Version > central.Version:
		return Decision{Action: PushLocal}
	case central.Version > local.Version:
		return Decision{Action: PullCentral}
	}

	switch cmp := compareLastRead(local.LastRead, central.LastRead); {
	case cmp > 0:
		return Decision{Action: PushLocal, Tie: true}
	case cmp < 0:
		return Decision{Action: PullCentral, Tie: true}
	default:
		return Decision{Action: NoOp, Tie: true}
	}
}

// compareLastRead orders two last_read values chronologically at full
// precision. Values that parse to the same instant, or that do not parse,
// fall back to raw string order, so only identical strings compare equal.
func compareLastRead(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		if c := ta.Compare(tb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}
