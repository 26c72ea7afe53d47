package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/foresturquhart/indexhook/api/v1/dtos"
	"github.com/foresturquhart/indexhook/models"
	"github.com/foresturquhart/indexhook/repositories"
	"github.com/foresturquhart/indexhook/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 50

// PersonService is the subset of services.PersonService the handlers use
type PersonService interface {
	Get(ctx context.Context, uuid string) (*models.Person, error)
	List(ctx context.Context, limit int, after *repositories.PersonCursor) ([]*models.Person, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, uuid string, fn func(person *models.Person)) (*models.Person, error)
	Delete(ctx context.Context, uuid string) error
	Search(ctx context.Context, filter *models.PersonFilter) (*models.PaginatedPersonResult, error)
	ReindexAll(ctx context.Context) (int, error)
}

type PersonHandler struct {
	service       PersonService
	encryptionKey string
}

func NewPersonHandler(svc PersonService, encryptionKey string) *PersonHandler {
	return &PersonHandler{
		service:       svc,
		encryptionKey: encryptionKey,
	}
}

func (h *PersonHandler) CreatePerson(c echo.Context) error {
	ctx := c.Request().Context()

	var req dtos.PersonCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request data: %v", err))
	}
	if err := dtos.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
	}

	person := req.ToModel()
	if err := h.service.Create(ctx, person); err != nil {
		if conflict := conflictResponse(c, err); conflict != nil {
			return conflict()
		}
		log.Error().Err(err).Msg("Error storing person")
		return echo.NewHTTPError(http.StatusInternalServerError, "Error storing person")
	}

	return c.JSON(http.StatusCreated, dtos.FromModel(person))
}

func (h *PersonHandler) ListPeople(c echo.Context) error {
	ctx := c.Request().Context()

	var req dtos.PersonListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request parameters")
	}
	if err := dtos.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
	}

	limit := defaultListLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	var after *repositories.PersonCursor
	if req.StartingAfter != nil {
		cursor, err := h.decodeListCursor(*req.StartingAfter)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		after = cursor
	}

	// One extra row tells us whether there is another page
	people, err := h.service.List(ctx, limit+1, after)
	if err != nil {
		log.Error().Err(err).Msg("Error listing people")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list people")
	}

	hasMore := len(people) > limit
	if hasMore {
		people = people[:limit]
	}

	response := map[string]any{
		"data":     dtos.FromModels(people),
		"has_more": hasMore,
	}

	if hasMore {
		last := people[len(people)-1]
		cursor, err := utils.EncryptCursor([]types.FieldValue{last.CreatedAt.Format(time.RFC3339Nano), last.ID}, h.encryptionKey)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to encode cursor")
		}
		response["next_cursor"] = cursor
	}

	return c.JSON(http.StatusOK, response)
}

func (h *PersonHandler) GetPerson(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := personUUID(c)
	if err != nil {
		return err
	}

	person, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrPersonNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Person not found")
		}
		log.Error().Err(err).Str("uuid", id).Msg("Error retrieving person")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve person")
	}

	return c.JSON(http.StatusOK, dtos.FromModel(person))
}

func (h *PersonHandler) UpdatePerson(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := personUUID(c)
	if err != nil {
		return err
	}

	var req dtos.PersonUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid request data: %v", err))
	}
	if err := dtos.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
	}

	person, err := h.service.Update(ctx, id, req.UpdateModel)
	if err != nil {
		if errors.Is(err, utils.ErrPersonNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Person not found")
		}
		if conflict := conflictResponse(c, err); conflict != nil {
			return conflict()
		}
		log.Error().Err(err).Str("uuid", id).Msg("Error updating person")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update person")
	}

	return c.JSON(http.StatusOK, dtos.FromModel(person))
}

func (h *PersonHandler) DeletePerson(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := personUUID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, utils.ErrPersonNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Person not found")
		}
		log.Error().Err(err).Str("uuid", id).Msg("Error deleting person")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete person")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *PersonHandler) SearchPeople(c echo.Context) error {
	ctx := c.Request().Context()

	var req dtos.PersonSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request data")
	}
	if err := dtos.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
	}

	filter, err := h.searchFilter(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	people, err := h.service.Search(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Error searching people")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search people")
	}

	response := map[string]any{
		"data":        dtos.FromModels(people.Data),
		"has_more":    people.HasMore,
		"total_count": people.TotalCount,
	}

	if people.NextCursor != nil {
		cursor, err := utils.EncryptCursor(people.NextCursor, h.encryptionKey)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to encode cursor")
		}
		response["next_cursor"] = cursor
	}

	return c.JSON(http.StatusOK, response)
}

// ReindexPeople queues every stored person for reindexing
func (h *PersonHandler) ReindexPeople(c echo.Context) error {
	queued, err := h.service.ReindexAll(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Error queueing people for reindexing")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to queue reindex")
	}

	return c.JSON(http.StatusAccepted, dtos.ReindexResponse{Queued: queued})
}

func (h *PersonHandler) searchFilter(req *dtos.PersonSearchRequest) (*models.PersonFilter, error) {
	filter := &models.PersonFilter{}

	if req.Limit != nil {
		filter.Limit = *req.Limit
	}

	if req.StartingAfter != nil {
		cursor, err := utils.DecryptCursor(*req.StartingAfter, h.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		filter.StartingAfter = cursor
	}

	if req.SortBy != nil {
		switch *req.SortBy {
		case "relevance":
			filter.SortBy = models.PersonSortByRelevance
		case "created_at":
			filter.SortBy = models.PersonSortByCreatedAt
		case "name":
			filter.SortBy = models.PersonSortByName
		default:
			return nil, fmt.Errorf("invalid sort_by option: %s", *req.SortBy)
		}
	}

	if req.SortDirection != nil {
		switch *req.SortDirection {
		case "asc":
			filter.SortDirection = utils.SortDirectionAsc
		case "desc":
			filter.SortDirection = utils.SortDirectionDesc
		default:
			return nil, fmt.Errorf("invalid sort_direction option: %s", *req.SortDirection)
		}
	}

	if req.Name != nil {
		filter.Name = *req.Name
	}
	if req.Description != nil {
		filter.Description = *req.Description
	}
	if req.Source != nil {
		filter.Source = *req.Source
	}
	if req.SinceDate != nil {
		since, err := time.Parse(time.RFC3339, *req.SinceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid since_date format, expected RFC3339")
		}
		filter.SinceDate = &since
	}
	if req.BeforeDate != nil {
		before, err := time.Parse(time.RFC3339, *req.BeforeDate)
		if err != nil {
			return nil, fmt.Errorf("invalid before_date format, expected RFC3339")
		}
		filter.BeforeDate = &before
	}

	return filter, nil
}

func (h *PersonHandler) decodeListCursor(input string) (*repositories.PersonCursor, error) {
	values, err := utils.DecryptCursor(input, h.encryptionKey)
	if err != nil || len(values) != 2 {
		return nil, fmt.Errorf("invalid cursor")
	}

	createdAtStr, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	id, ok := values[1].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid cursor")
	}

	return &repositories.PersonCursor{CreatedAt: createdAt, ID: int64(id)}, nil
}

// personUUID reads the :uuid path parameter. Malformed values cannot match a
// stored person.
func personUUID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusNotFound, "Person not found")
	}
	return id.String(), nil
}

func conflictResponse(c echo.Context, err error) func() error {
	var conflictErr *utils.ConflictError
	if !errors.As(err, &conflictErr) {
		return nil
	}
	return func() error {
		return c.JSON(http.StatusConflict, map[string]any{
			"error":       conflictErr.Message,
			"conflict_id": conflictErr.ConflictUUID,
		})
	}
}
