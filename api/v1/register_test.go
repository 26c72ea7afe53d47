package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/foresturquhart/indexhook/models"
	"github.com/foresturquhart/indexhook/repositories"
	"github.com/foresturquhart/indexhook/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey  = "test-key"
	adaUUID  = "0b6f7c3e-8f4a-4a57-9d3b-5e0a1c2d3e4f"
	missUUID = "9d3b5e0a-1c2d-4e4f-8f4a-0b6f7c3e4a57"
)

type fakePersonService struct {
	people  map[string]*models.Person
	ordered []*models.Person

	listAfter  *repositories.PersonCursor
	listLimit  int
	lastFilter *models.PersonFilter
	deleted    []string
	reindexed  int
}

func newFakePersonService() *fakePersonService {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ada := &models.Person{ID: 1, UUID: adaUUID, Name: "Ada Lovelace", CreatedAt: created, UpdatedAt: created}
	grace := &models.Person{ID: 2, UUID: "1c2d3e4f-0b6f-4c3e-8f4a-4a579d3b5e0a", Name: "Grace Hopper", CreatedAt: created.Add(time.Hour), UpdatedAt: created}

	return &fakePersonService{
		people:  map[string]*models.Person{ada.UUID: ada, grace.UUID: grace},
		ordered: []*models.Person{ada, grace},
	}
}

func (f *fakePersonService) Get(ctx context.Context, uuid string) (*models.Person, error) {
	person, ok := f.people[uuid]
	if !ok {
		return nil, utils.ErrPersonNotFound
	}
	return person, nil
}

func (f *fakePersonService) List(ctx context.Context, limit int, after *repositories.PersonCursor) ([]*models.Person, error) {
	f.listLimit = limit
	f.listAfter = after

	var out []*models.Person
	for _, person := range f.ordered {
		if after != nil && person.ID <= after.ID {
			continue
		}
		out = append(out, person)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePersonService) Create(ctx context.Context, person *models.Person) error {
	for _, existing := range f.people {
		if existing.Name == person.Name {
			return &utils.ConflictError{Message: "A person with this name already exists", ConflictUUID: existing.UUID}
		}
	}
	person.UUID = "2d3e4f0b-6f7c-4e8f-8a4a-579d3b5e0a1c"
	f.people[person.UUID] = person
	return nil
}

func (f *fakePersonService) Update(ctx context.Context, uuid string, fn func(person *models.Person)) (*models.Person, error) {
	person, ok := f.people[uuid]
	if !ok {
		return nil, utils.ErrPersonNotFound
	}
	fn(person)
	return person, nil
}

func (f *fakePersonService) Delete(ctx context.Context, uuid string) error {
	if _, ok := f.people[uuid]; !ok {
		return utils.ErrPersonNotFound
	}
	delete(f.people, uuid)
	f.deleted = append(f.deleted, uuid)
	return nil
}

func (f *fakePersonService) Search(ctx context.Context, filter *models.PersonFilter) (*models.PaginatedPersonResult, error) {
	f.lastFilter = filter
	return &models.PaginatedPersonResult{
		Data:       []*models.Person{f.people[adaUUID]},
		HasMore:    true,
		TotalCount: 2,
		NextCursor: []types.FieldValue{1.0, float64(1)},
	}, nil
}

func (f *fakePersonService) ReindexAll(ctx context.Context) (int, error) {
	f.reindexed = len(f.people)
	return f.reindexed, nil
}

func newTestServer(svc *fakePersonService) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, svc, testKey)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetPerson(t *testing.T) {
	e := newTestServer(newFakePersonService())

	rec := do(e, http.MethodGet, "/v1/people/"+adaUUID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, adaUUID, body["id"])
	assert.Equal(t, "Ada Lovelace", body["name"])
}

func TestGetPersonNotFound(t *testing.T) {
	e := newTestServer(newFakePersonService())

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/people/"+missUUID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/people/not-a-uuid", "").Code)
}

func TestCreatePerson(t *testing.T) {
	svc := newFakePersonService()
	e := newTestServer(svc)

	rec := do(e, http.MethodPost, "/v1/people", `{"name":"Alan Turing","sources":[{"url":"https://example.com/alan"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alan Turing")
	assert.Len(t, svc.people, 3)
}

func TestCreatePersonValidation(t *testing.T) {
	e := newTestServer(newFakePersonService())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/people", `{"name":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/people", `{"name":"X","sources":[{"url":"not a url"}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/people", `{`).Code)
}

func TestCreatePersonConflict(t *testing.T) {
	e := newTestServer(newFakePersonService())

	rec := do(e, http.MethodPost, "/v1/people", `{"name":"Ada Lovelace"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), adaUUID)
}

func TestUpdatePerson(t *testing.T) {
	svc := newFakePersonService()
	e := newTestServer(svc)

	rec := do(e, http.MethodPut, "/v1/people/"+adaUUID, `{"description":"Mathematician"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.people[adaUUID].Description)
	assert.Equal(t, "Mathematician", *svc.people[adaUUID].Description)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPut, "/v1/people/"+missUUID, `{"name":"X"}`).Code)
}

func TestDeletePerson(t *testing.T) {
	svc := newFakePersonService()
	e := newTestServer(svc)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/v1/people/"+adaUUID, "").Code)
	assert.Equal(t, []string{adaUUID}, svc.deleted)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/v1/people/"+adaUUID, "").Code)
}

func TestListPeoplePagination(t *testing.T) {
	svc := newFakePersonService()
	e := newTestServer(svc)

	rec := do(e, http.MethodGet, "/v1/people?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.listLimit)

	var page struct {
		Data       []map[string]any `json:"data"`
		HasMore    bool             `json:"has_more"`
		NextCursor string           `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	rec = do(e, http.MethodGet, "/v1/people?limit=1&starting_after="+url.QueryEscape(page.NextCursor), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listAfter)
	assert.Equal(t, int64(1), svc.listAfter.ID)

	page.NextCursor = ""
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Grace Hopper", page.Data[0]["name"])
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestListPeopleInvalidCursor(t *testing.T) {
	e := newTestServer(newFakePersonService())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/people?starting_after=garbage", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/people?limit=1000", "").Code)
}

func TestSearchPeople(t *testing.T) {
	svc := newFakePersonService()
	e := newTestServer(svc)

	rec := do(e, http.MethodPost, "/v1/people/search", `{"name":"ada","sort_by":"name","sort_direction":"asc","since_date":"2024-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, svc.lastFilter)
	assert.Equal(t, "ada", svc.lastFilter.Name)
	assert.Equal(t, models.PersonSortByName, svc.lastFilter.SortBy)
	assert.Equal(t, utils.SortDirectionAsc, svc.lastFilter.SortDirection)
	require.NotNil(t, svc.lastFilter.SinceDate)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	cursor, ok := body["next_cursor"].(string)
	require.True(t, ok)

	values, err := utils.DecryptCursor(cursor, testKey)
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestSearchPeopleValidation(t *testing.T) {
	e := newTestServer(newFakePersonService())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/people/search", `{"sort_by":"age"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/people/search", `{"starting_after":"garbage"}`).Code)
}

func TestReindexPeople(t *testing.T) {
	svc := newFakePersonService()
	e := newTestServer(svc)

	rec := do(e, http.MethodPost, "/v1/people/reindex", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"queued":2}`, rec.Body.String())
}
