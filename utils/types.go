package utils

import "github.com/elastic/go-elasticsearch/v8/typedapi/types"

// NewPointer returns a pointer to the object passed.
func NewPointer[T any](t T) *T { return &t }

// SortDirection specifies the sort order
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// PaginationOptions carries a page size and the search_after values of the
// last hit on the previous page
type PaginationOptions struct {
	Limit         int
	StartingAfter []types.FieldValue
}

// PaginatedResult is one page of search results
type PaginatedResult[T any] struct {
	Data       []T                `json:"data"`
	HasMore    bool               `json:"has_more"`
	TotalCount int64              `json:"total_count"`
	NextCursor []types.FieldValue `json:"next_cursor,omitempty"`
}
