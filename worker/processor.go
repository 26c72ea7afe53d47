package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/foresturquhart/indexhook/identifier"
	"github.com/foresturquhart/indexhook/search"
	"github.com/foresturquhart/indexhook/tasks"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// IndexWriter applies documents to the search engine
type IndexWriter interface {
	Update(ctx context.Context, index string, id string, doc search.Document) error
	Remove(ctx context.Context, index string, id string) error
}

// Processor applies index requests to the search engine
type Processor struct {
	registry *search.Registry
	writer   IndexWriter
}

func NewProcessor(registry *search.Registry, writer IndexWriter) *Processor {
	return &Processor{
		registry: registry,
		writer:   writer,
	}
}

// Process updates or removes the document named by req. Requests that can
// never succeed are wrapped with asynq.SkipRetry.
func (p *Processor) Process(ctx context.Context, req tasks.Request) error {
	contentType, pk, err := identifier.Parse(req.Identifier)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	idx, ok := p.registry.Get(contentType)
	if !ok {
		return fmt.Errorf("no search index registered for %s: %w", contentType, asynq.SkipRetry)
	}

	switch req.Action {
	case tasks.ActionUpdate:
		doc, err := idx.Load(ctx, pk)
		if errors.Is(err, search.ErrObjectNotFound) {
			// Deleted after the task was queued
			log.Info().Str("identifier", req.Identifier).Msg("Object no longer exists, removing from index")
			if err := p.writer.Remove(ctx, idx.IndexName(), pk); err != nil {
				return fmt.Errorf("error removing %s from index: %w", req.Identifier, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("error loading %s: %w", req.Identifier, err)
		}

		if err := p.writer.Update(ctx, idx.IndexName(), pk, doc); err != nil {
			return fmt.Errorf("error updating %s in index: %w", req.Identifier, err)
		}

	case tasks.ActionDelete:
		if err := p.writer.Remove(ctx, idx.IndexName(), pk); err != nil {
			return fmt.Errorf("error removing %s from index: %w", req.Identifier, err)
		}

	default:
		return fmt.Errorf("unrecognized action %q for %s: %w", req.Action, req.Identifier, asynq.SkipRetry)
	}

	return nil
}
