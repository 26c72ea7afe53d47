package services

import (
	"context"
	"fmt"

	"github.com/foresturquhart/indexhook/enqueuer"
	"github.com/foresturquhart/indexhook/hooks"
	"github.com/foresturquhart/indexhook/models"
	"github.com/foresturquhart/indexhook/repositories"
	"github.com/foresturquhart/indexhook/search"
	"github.com/foresturquhart/indexhook/storage"
	"github.com/foresturquhart/indexhook/tasks"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PersonSearcher runs full text queries against the people index
type PersonSearcher interface {
	Search(ctx context.Context, filter *models.PersonFilter) (*models.PaginatedPersonResult, error)
}

type PersonService struct {
	postgres *storage.Postgres
	repo     *repositories.PersonRepository
	enqueuer *enqueuer.Enqueuer
	search   PersonSearcher
}

func NewPersonService(postgres *storage.Postgres, enq *enqueuer.Enqueuer, searcher PersonSearcher) *PersonService {
	return &PersonService{
		postgres: postgres,
		repo:     repositories.NewPersonRepository(),
		enqueuer: enq,
		search:   searcher,
	}
}

func (s *PersonService) Get(ctx context.Context, uuid string) (*models.Person, error) {
	return s.repo.GetByUUID(ctx, s.postgres.Pool, uuid)
}

func (s *PersonService) List(ctx context.Context, limit int, after *repositories.PersonCursor) ([]*models.Person, error) {
	return s.repo.List(ctx, s.postgres.Pool, limit, after)
}

// Create stores the person and schedules indexing once the insert commits
func (s *PersonService) Create(ctx context.Context, person *models.Person) error {
	return s.postgres.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx, scope *hooks.Scope) error {
		if err := s.repo.Create(ctx, tx, person); err != nil {
			return fmt.Errorf("failed to create person: %w", err)
		}

		return s.enqueuer.Enqueue(ctx, scope, tasks.ActionUpdate, person)
	})
}

// Update applies fn to the stored person and schedules reindexing once the
// update commits
func (s *PersonService) Update(ctx context.Context, uuid string, fn func(person *models.Person)) (*models.Person, error) {
	var person *models.Person

	err := s.postgres.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx, scope *hooks.Scope) error {
		existing, err := s.repo.GetByUUID(ctx, tx, uuid)
		if err != nil {
			return err
		}

		fn(existing)

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return fmt.Errorf("failed to update person: %w", err)
		}

		person = existing
		return s.enqueuer.Enqueue(ctx, scope, tasks.ActionUpdate, existing)
	})
	if err != nil {
		return nil, err
	}

	return person, nil
}

// Delete removes the person and schedules removal from the index once the
// delete commits
func (s *PersonService) Delete(ctx context.Context, uuid string) error {
	return s.postgres.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx, scope *hooks.Scope) error {
		if err := s.repo.Delete(ctx, tx, uuid); err != nil {
			return err
		}

		return s.enqueuer.Enqueue(ctx, scope, tasks.ActionDelete, &models.Person{UUID: uuid})
	})
}

func (s *PersonService) Search(ctx context.Context, filter *models.PersonFilter) (*models.PaginatedPersonResult, error) {
	result, err := s.search.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search for people: %w", err)
	}

	return result, nil
}

// ReindexAll queues an update for every stored person and returns how many
// were queued
func (s *PersonService) ReindexAll(ctx context.Context) (int, error) {
	uuids, err := s.repo.GetAllUUIDs(ctx, s.postgres.Pool)
	if err != nil {
		return 0, fmt.Errorf("failed to get person UUIDs: %w", err)
	}

	// No transaction is open, so each task is submitted straight away
	scope := hooks.NewAutocommitScope()

	queued := 0
	for _, uuid := range uuids {
		if err := s.enqueuer.Enqueue(ctx, scope, tasks.ActionUpdate, &models.Person{UUID: uuid}); err != nil {
			log.Error().Err(err).Msgf("Error queueing reindex for person %s", uuid)
			continue
		}
		queued++
	}

	log.Info().Int("queued", queued).Int("total", len(uuids)).Msg("Queued people for reindexing")

	return queued, nil
}

// Index returns the search index that builds person documents from the database
func (s *PersonService) Index() search.SearchIndex {
	return NewPersonIndex(func(ctx context.Context, uuid string) (*models.Person, error) {
		return s.repo.GetByUUID(ctx, s.postgres.Pool, uuid)
	})
}
