package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foresturquhart/indexhook/models"
	"github.com/foresturquhart/indexhook/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PersonCursor is the keyset position of a person in created_at, id order
type PersonCursor struct {
	CreatedAt time.Time
	ID        int64
}

type PersonRepository struct{}

func NewPersonRepository() *PersonRepository {
	return &PersonRepository{}
}

func (r *PersonRepository) GetByUUID(ctx context.Context, db DBTX, uuid string) (*models.Person, error) {
	query := `
		SELECT id, uuid, name, description, created_at, updated_at
		FROM people
		WHERE uuid = $1
	`

	var person models.Person

	err := db.QueryRow(ctx, query, uuid).Scan(
		&person.ID, &person.UUID, &person.Name, &person.Description, &person.CreatedAt, &person.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrPersonNotFound
		}
		return nil, fmt.Errorf("error fetching person: %w", err)
	}

	if err := r.fetchPersonSources(ctx, db, &person); err != nil {
		return nil, err
	}

	return &person, nil
}

// getByName finds a person by their exact name, returning nil when none exists
func (r *PersonRepository) getByName(ctx context.Context, db DBTX, name string) (*models.Person, error) {
	query := `
        SELECT id, uuid
        FROM people
        WHERE name = $1
    `

	var person models.Person

	err := db.QueryRow(ctx, query, name).Scan(&person.ID, &person.UUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching person by name: %w", err)
	}

	return &person, nil
}

// List returns up to limit people ordered by creation time, starting after
// the given cursor
func (r *PersonRepository) List(ctx context.Context, db DBTX, limit int, after *PersonCursor) ([]*models.Person, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if after == nil {
		rows, err = db.Query(ctx, `
			SELECT id, uuid, name, description, created_at, updated_at
			FROM people
			ORDER BY created_at, id
			LIMIT $1
		`, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT id, uuid, name, description, created_at, updated_at
			FROM people
			WHERE (created_at, id) > ($1, $2)
			ORDER BY created_at, id
			LIMIT $3
		`, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("error listing people: %w", err)
	}

	people, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Person, error) {
		var person models.Person
		err := row.Scan(&person.ID, &person.UUID, &person.Name, &person.Description, &person.CreatedAt, &person.UpdatedAt)
		return &person, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning people: %w", err)
	}

	for _, person := range people {
		if err := r.fetchPersonSources(ctx, db, person); err != nil {
			return nil, err
		}
	}

	return people, nil
}

// GetAllUUIDs retrieves every person UUID from the database
func (r *PersonRepository) GetAllUUIDs(ctx context.Context, db DBTX) ([]string, error) {
	rows, err := db.Query(ctx, "SELECT uuid FROM people ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("error querying person UUIDs: %w", err)
	}

	uuids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning person UUIDs: %w", err)
	}

	return uuids, nil
}

// Create inserts a new person record
func (r *PersonRepository) Create(ctx context.Context, tx pgx.Tx, person *models.Person) error {
	existingPerson, err := r.getByName(ctx, tx, person.Name)
	if err != nil {
		return fmt.Errorf("error checking for duplicate names: %w", err)
	}

	if existingPerson != nil {
		return &utils.ConflictError{
			Message:      "A person with this name already exists",
			ConflictUUID: existingPerson.UUID,
		}
	}

	query := `
        INSERT INTO people (name, description)
        VALUES ($1, $2)
        RETURNING id, uuid, created_at, updated_at
    `

	err = tx.QueryRow(
		ctx, query,
		person.Name, person.Description,
	).Scan(
		&person.ID, &person.UUID,
		&person.CreatedAt, &person.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("error creating person: %w", err)
	}

	if err := r.syncSourceAssociations(ctx, tx, person, nil); err != nil {
		return fmt.Errorf("error syncing associations: %w", err)
	}

	return nil
}

// Update updates an existing person record identified by UUID
func (r *PersonRepository) Update(ctx context.Context, tx pgx.Tx, person *models.Person) error {
	duplicate, err := r.getByName(ctx, tx, person.Name)
	if err != nil {
		return fmt.Errorf("error checking for duplicate name: %w", err)
	}

	if duplicate != nil && duplicate.UUID != person.UUID {
		return &utils.ConflictError{
			Message:      "A person with this name already exists",
			ConflictUUID: duplicate.UUID,
		}
	}

	existingPerson, err := r.GetByUUID(ctx, tx, person.UUID)
	if err != nil {
		return err
	}

	query := `
        UPDATE people SET
            name = $1,
            description = $2
        WHERE id = $3
        RETURNING id, uuid, created_at, updated_at
    `

	err = tx.QueryRow(
		ctx, query,
		person.Name, person.Description,
		existingPerson.ID,
	).Scan(
		&person.ID, &person.UUID,
		&person.CreatedAt, &person.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("error updating person: %w", err)
	}

	if err := r.syncSourceAssociations(ctx, tx, person, existingPerson); err != nil {
		return fmt.Errorf("error syncing associations: %w", err)
	}

	return nil
}

func (r *PersonRepository) Delete(ctx context.Context, tx pgx.Tx, uuid string) error {
	result, err := tx.Exec(ctx, "DELETE FROM people WHERE uuid = $1", uuid)
	if err != nil {
		return fmt.Errorf("error deleting person: %w", err)
	}

	if result.RowsAffected() == 0 {
		return utils.ErrPersonNotFound
	}

	return nil
}

// fetchPersonSources retrieves all sources associated with a person
func (r *PersonRepository) fetchPersonSources(ctx context.Context, db DBTX, person *models.Person) error {
	query := `
		SELECT s.url, s.title, s.description
		FROM person_sources s
		WHERE s.person_id = $1
		ORDER BY s.title, s.url
	`

	rows, err := db.Query(ctx, query, person.ID)
	if err != nil {
		return fmt.Errorf("error querying person sources: %w", err)
	}

	sources, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.PersonSource, error) {
		var source models.PersonSource
		err := row.Scan(&source.URL, &source.Title, &source.Description)
		return &source, err
	})
	if err != nil {
		return fmt.Errorf("error scanning person sources: %w", err)
	}

	person.Sources = sources
	return nil
}

// syncSourceAssociations synchronizes source associations for a person
func (r *PersonRepository) syncSourceAssociations(ctx context.Context, tx pgx.Tx, person *models.Person, existingPerson *models.Person) error {
	existingSourcesByURL := make(map[string]*models.PersonSource)
	if existingPerson != nil {
		for _, source := range existingPerson.Sources {
			existingSourcesByURL[source.URL] = source
		}
	}

	sourcesToKeep := make(map[string]bool)
	updatedSources := make([]*models.PersonSource, 0, len(person.Sources))

	for _, source := range person.Sources {
		if source == nil || source.URL == "" || sourcesToKeep[source.URL] {
			continue
		}
		sourcesToKeep[source.URL] = true

		if _, exists := existingSourcesByURL[source.URL]; exists {
			query := `
                UPDATE person_sources
                SET title = $1, description = $2
                WHERE person_id = $3 AND url = $4
			`
			if _, err := tx.Exec(ctx, query, source.Title, source.Description, person.ID, source.URL); err != nil {
				return fmt.Errorf("error updating source: %w", err)
			}
		} else {
			query := `
                INSERT INTO person_sources (person_id, url, title, description)
                VALUES ($1, $2, $3, $4)
            `
			if _, err := tx.Exec(ctx, query, person.ID, source.URL, source.Title, source.Description); err != nil {
				return fmt.Errorf("error creating source: %w", err)
			}
		}

		updatedSources = append(updatedSources, &models.PersonSource{
			URL:         source.URL,
			Title:       source.Title,
			Description: source.Description,
		})
	}

	// Remove sources no longer present
	for url := range existingSourcesByURL {
		if sourcesToKeep[url] {
			continue
		}
		if _, err := tx.Exec(ctx, `DELETE FROM person_sources WHERE person_id = $1 AND url = $2`, person.ID, url); err != nil {
			return fmt.Errorf("error removing source: %w", err)
		}
	}

	person.Sources = updatedSources

	return nil
}
