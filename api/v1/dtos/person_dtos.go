package dtos

import (
	"time"

	"github.com/foresturquhart/indexhook/models"
	"github.com/go-playground/validator/v10"
)

var Validate = validator.New()

type PersonCreateRequest struct {
	Name        string                `json:"name" validate:"required,min=1"`
	Description *string               `json:"description,omitempty"`
	Sources     []PersonSourceRequest `json:"sources,omitempty" validate:"dive"`
}

func (r *PersonCreateRequest) ToModel() *models.Person {
	return &models.Person{
		Name:        r.Name,
		Description: r.Description,
		Sources:     toSourceModels(r.Sources),
	}
}

type PersonUpdateRequest struct {
	Name        *string               `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string               `json:"description,omitempty"`
	Sources     []PersonSourceRequest `json:"sources,omitempty" validate:"dive"`
}

func (r *PersonUpdateRequest) UpdateModel(person *models.Person) {
	if r.Name != nil {
		person.Name = *r.Name
	}
	if r.Description != nil {
		person.Description = r.Description
	}
	if r.Sources != nil {
		person.Sources = toSourceModels(r.Sources)
	}
}

type PersonListRequest struct {
	Limit         *int    `query:"limit" validate:"omitempty,min=1,max=100"`
	StartingAfter *string `query:"starting_after"`
}

type PersonSearchRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1"`
	Description   *string `json:"description" validate:"omitempty"`
	Source        *string `json:"source" validate:"omitempty"`
	SinceDate     *string `json:"since_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	BeforeDate    *string `json:"before_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit         *int    `json:"limit" validate:"omitempty,min=1,max=100"`
	StartingAfter *string `json:"starting_after" validate:"omitempty"`
	SortBy        *string `json:"sort_by" validate:"omitempty,oneof=relevance created_at name"`
	SortDirection *string `json:"sort_direction" validate:"omitempty,oneof=asc desc"`
}

type PersonResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Sources     []PersonSourceResponse `json:"sources,omitempty"`
}

func FromModel(person *models.Person) *PersonResponse {
	sources := make([]PersonSourceResponse, len(person.Sources))
	for i, src := range person.Sources {
		sources[i] = PersonSourceResponse{
			URL:         src.URL,
			Title:       src.Title,
			Description: src.Description,
		}
	}
	return &PersonResponse{
		ID:          person.UUID,
		Name:        person.Name,
		Description: person.Description,
		CreatedAt:   person.CreatedAt,
		UpdatedAt:   person.UpdatedAt,
		Sources:     sources,
	}
}

func FromModels(people []*models.Person) []*PersonResponse {
	out := make([]*PersonResponse, len(people))
	for i, person := range people {
		out[i] = FromModel(person)
	}
	return out
}

type PersonSourceRequest struct {
	URL         string  `json:"url" validate:"required,url"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type PersonSourceResponse struct {
	URL         string  `json:"url"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ReindexResponse struct {
	Queued int `json:"queued"`
}

func toSourceModels(sources []PersonSourceRequest) []*models.PersonSource {
	out := make([]*models.PersonSource, len(sources))
	for i, src := range sources {
		out[i] = &models.PersonSource{
			URL:         src.URL,
			Title:       src.Title,
			Description: src.Description,
		}
	}
	return out
}
