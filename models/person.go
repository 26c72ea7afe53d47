package models

import (
	"time"

	"github.com/foresturquhart/indexhook/utils"
)

// PersonContentType is the "app.model" part of a person's index identifier
const PersonContentType = "curator.person"

// Person represents a person entity in the system
type Person struct {
	ID          int64     `json:"-"`           // Internal primary key
	UUID        string    `json:"id"`          // Public-facing identifier
	Name        string    `json:"name"`        // Person name
	Description *string   `json:"description"` // Person description
	CreatedAt   time.Time `json:"created_at"`  // Creation timestamp
	UpdatedAt   time.Time `json:"updated_at"`  // Last update timestamp

	Sources []*PersonSource `json:"sources"` // Associated sources
}

// ContentType implements identifier.Identifiable
func (p *Person) ContentType() string {
	return PersonContentType
}

// PrimaryKey implements identifier.Identifiable. People are indexed by UUID.
func (p *Person) PrimaryKey() string {
	return p.UUID
}

// PersonSource represents a source associated with a person
type PersonSource struct {
	URL         string  `json:"url"`         // Source URL
	Title       *string `json:"title"`       // Optional source title
	Description *string `json:"description"` // Optional source description
}

// PersonSortBy selects the field people are ordered by in search results
type PersonSortBy string

const (
	PersonSortByRelevance PersonSortBy = "_score"
	PersonSortByCreatedAt PersonSortBy = "created_at"
	PersonSortByName      PersonSortBy = "name.keyword"
)

// PersonFilter represents the filtering options for person queries
type PersonFilter struct {
	Name        string
	Description string
	Source      string
	SinceDate   *time.Time
	BeforeDate  *time.Time

	SortBy        PersonSortBy
	SortDirection utils.SortDirection

	utils.PaginationOptions
}

type PaginatedPersonResult = utils.PaginatedResult[*Person]
