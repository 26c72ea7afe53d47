package enqueuer

import (
	"context"
	"fmt"

	"github.com/foresturquhart/indexhook/hooks"
	"github.com/foresturquhart/indexhook/identifier"
	"github.com/foresturquhart/indexhook/tasks"
	"github.com/rs/zerolog/log"
)

// Resolver looks up the task handle registered under a path
type Resolver interface {
	Resolve(path string) (tasks.Handle, error)
}

// Enqueuer defers index tasks until the surrounding transaction commits
type Enqueuer struct {
	resolver    Resolver
	defaultTask string
	lookup      identifier.LookupFunc
}

// Option customises a single Enqueue call
type Option func(*options)

type options struct {
	task string
}

// WithTask overrides the configured default task path
func WithTask(path string) Option {
	return func(o *options) {
		o.task = path
	}
}

// NewEnqueuer creates an enqueuer resolving defaultTask through resolver
func NewEnqueuer(resolver Resolver, defaultTask string) *Enqueuer {
	return &Enqueuer{
		resolver:    resolver,
		defaultTask: defaultTask,
		lookup:      identifier.Lookup,
	}
}

// WithLookup returns a copy of the enqueuer using a different identifier lookup
func (e *Enqueuer) WithLookup(lookup identifier.LookupFunc) *Enqueuer {
	clone := *e
	clone.lookup = lookup
	return &clone
}

// Enqueue registers a commit hook on scope that submits action for instance
// to the task queue. Pending hooks for the same entity that the new one
// makes redundant are pruned first: a delete supersedes everything pending
// for the entity, an update only supersedes earlier updates.
func (e *Enqueuer) Enqueue(ctx context.Context, scope *hooks.Scope, action tasks.Action, instance any, opts ...Option) error {
	o := options{task: e.defaultTask}
	for _, opt := range opts {
		opt(&o)
	}

	id, err := e.lookup(instance)
	if err != nil {
		return err
	}

	handle, err := e.resolver.Resolve(o.task)
	if err != nil {
		return fmt.Errorf("error resolving task %s: %w", o.task, err)
	}

	if removed := prune(scope, action, id); removed > 0 {
		log.Debug().Str("identifier", id).Str("action", string(action)).Int("removed", removed).Msg("Pruned superseded commit hooks")
	}

	cb := hooks.NewPendingCallback(id, action, func(ctx context.Context) error {
		if err := handle.SubmitAsync(ctx, action, id); err != nil {
			return fmt.Errorf("error submitting %s task for %s: %w", action, id, err)
		}
		return nil
	})

	if err := scope.OnCommit(ctx, cb); err != nil {
		return fmt.Errorf("error registering commit hook: %w", err)
	}

	log.Debug().Str("identifier", id).Str("action", string(action)).Str("task", o.task).Msg("Registered commit hook")

	return nil
}

func prune(scope *hooks.Scope, action tasks.Action, id string) int {
	switch action {
	case tasks.ActionDelete:
		return scope.Prune(func(cb *hooks.PendingCallback) bool {
			return cb.Identifier == id
		})
	case tasks.ActionUpdate:
		return scope.Prune(func(cb *hooks.PendingCallback) bool {
			return cb.Identifier == id && cb.Action == tasks.ActionUpdate
		})
	default:
		return 0
	}
}
