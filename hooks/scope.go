package hooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/foresturquhart/indexhook/tasks"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

var ErrScopeClosed = errors.New("transaction scope is closed")

// PendingCallback is a commit hook tagged with the entity and action it was
// registered for
type PendingCallback struct {
	Identifier string
	Action     tasks.Action

	fire func(ctx context.Context) error
}

// NewPendingCallback creates a callback that runs fire once the owning
// transaction commits
func NewPendingCallback(identifier string, action tasks.Action, fire func(ctx context.Context) error) *PendingCallback {
	return &PendingCallback{
		Identifier: identifier,
		Action:     action,
		fire:       fire,
	}
}

// Fire runs the callback
func (c *PendingCallback) Fire(ctx context.Context) error {
	if c.fire == nil {
		return nil
	}
	return c.fire(ctx)
}

// Scope holds the commit hooks of a single transaction in registration
// order. A Scope is owned by one goroutine and is not safe for concurrent use.
type Scope struct {
	pending    []*PendingCallback
	autocommit bool
	closed     bool
}

// NewScope returns a scope for an open transaction. Callbacks wait for Commit.
func NewScope() *Scope {
	return &Scope{}
}

// NewAutocommitScope returns a scope with no open transaction, so every
// callback fires as soon as it is registered.
func NewAutocommitScope() *Scope {
	return &Scope{autocommit: true}
}

// Autocommit reports whether callbacks fire on registration
func (s *Scope) Autocommit() bool {
	return s.autocommit
}

// OnCommit registers a callback to run after the transaction commits
func (s *Scope) OnCommit(ctx context.Context, cb *PendingCallback) error {
	if s.closed {
		return ErrScopeClosed
	}

	if s.autocommit {
		return cb.Fire(ctx)
	}

	s.pending = append(s.pending, cb)
	return nil
}

// Pending returns a snapshot of the callbacks waiting for commit
func (s *Scope) Pending() []*PendingCallback {
	out := make([]*PendingCallback, len(s.pending))
	copy(out, s.pending)
	return out
}

// Len returns the number of callbacks waiting for commit
func (s *Scope) Len() int {
	return len(s.pending)
}

// Prune removes every pending callback matching fn, keeping the order of the
// rest, and returns how many were removed
func (s *Scope) Prune(fn func(cb *PendingCallback) bool) int {
	kept := s.pending[:0]
	removed := 0
	for _, cb := range s.pending {
		if fn(cb) {
			removed++
			continue
		}
		kept = append(kept, cb)
	}
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = kept
	return removed
}

// Commit fires every pending callback in registration order. A failing
// callback does not prevent the others from running.
func (s *Scope) Commit(ctx context.Context) error {
	if s.closed {
		return ErrScopeClosed
	}
	s.closed = true

	pending := s.pending
	s.pending = nil

	var result *multierror.Error
	for _, cb := range pending {
		if err := cb.Fire(ctx); err != nil {
			log.Error().Err(err).Str("identifier", cb.Identifier).Str("action", string(cb.Action)).Msg("Commit hook failed")
			result = multierror.Append(result, fmt.Errorf("commit hook for %s (%s): %w", cb.Identifier, cb.Action, err))
		}
	}

	return result.ErrorOrNil()
}

// Rollback discards the pending callbacks without running them
func (s *Scope) Rollback() {
	if s.closed {
		return
	}
	s.closed = true

	if len(s.pending) > 0 {
		log.Debug().Int("count", len(s.pending)).Msg("Discarding commit hooks after rollback")
	}
	s.pending = nil
}
