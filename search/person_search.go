package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	elastic_search "github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/foresturquhart/indexhook/elastic/indexes"
	"github.com/foresturquhart/indexhook/models"
	"github.com/foresturquhart/indexhook/utils"
	"github.com/rs/zerolog/log"
)

type PersonSearch struct {
	client *elasticsearch.TypedClient
}

func NewPersonSearch(client *elasticsearch.TypedClient) *PersonSearch {
	return &PersonSearch{
		client: client,
	}
}

// PersonDocument builds the search document for a person
func PersonDocument(person *models.Person) Document {
	document := Document{
		"identifier":   person.ContentType() + "." + person.PrimaryKey(),
		"content_type": person.ContentType(),
		"id":           person.ID,
		"uuid":         person.UUID,
		"name":         person.Name,
		"created_at":   person.CreatedAt,
		"updated_at":   person.UpdatedAt,
	}

	// Handle nullable fields
	if person.Description != nil {
		document["description"] = *person.Description
	}

	if len(person.Sources) > 0 {
		sources := make([]map[string]any, len(person.Sources))
		for i, source := range person.Sources {
			sourceDoc := map[string]any{
				"url": source.URL,
			}
			if source.Title != nil {
				sourceDoc["title"] = *source.Title
			}
			if source.Description != nil {
				sourceDoc["description"] = *source.Description
			}
			sources[i] = sourceDoc
		}
		document["sources"] = sources
	}

	return document
}

func (s *PersonSearch) Search(ctx context.Context, filter *models.PersonFilter) (*models.PaginatedPersonResult, error) {
	limit := normalizeLimit(filter.Limit)

	query := prepareSearchQuery(filter, limit)

	res, err := s.client.Search().Index(indexes.People).Request(query).TrackTotalHits(true).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}

	var totalHits int64
	if res.Hits.Total != nil {
		totalHits = res.Hits.Total.Value
	}
	hits := res.Hits.Hits

	// One extra hit is requested to detect further pages
	hasMore := len(hits) > limit
	if hasMore {
		hits = hits[:limit]
	}

	people := make([]*models.Person, 0, len(hits))
	var nextCursor []types.FieldValue
	for i, hit := range hits {
		person, err := hitToPerson(hit)
		if err != nil {
			return nil, fmt.Errorf("error converting hit to person: %w", err)
		}
		people = append(people, person)

		if i == len(hits)-1 && hasMore {
			nextCursor = append(nextCursor, hit.Sort...)
		}
	}

	return &models.PaginatedPersonResult{
		Data:       people,
		HasMore:    hasMore,
		TotalCount: totalHits,
		NextCursor: nextCursor,
	}, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	} else if limit > 100 {
		return 100
	}
	return limit
}

func prepareSearchQuery(filter *models.PersonFilter, limit int) *elastic_search.Request {
	var filters []types.Query
	var shoulds []types.Query

	if filter.Name != "" {
		shoulds = append(shoulds, types.Query{
			Match: map[string]types.MatchQuery{
				"name": {
					Query: filter.Name,
					Boost: utils.NewPointer(float32(2.0)),
				},
			},
		})
	}

	if filter.Description != "" {
		shoulds = append(shoulds, types.Query{
			Match: map[string]types.MatchQuery{
				"description": {
					Query: filter.Description,
				},
			},
		})
	}

	if filter.Source != "" {
		shoulds = append(shoulds, types.Query{
			Nested: &types.NestedQuery{
				Path: "sources",
				Query: &types.Query{
					Term: map[string]types.TermQuery{
						"sources.url": {
							Value: filter.Source,
						},
					},
				},
			},
		})
	}

	if filter.SinceDate != nil || filter.BeforeDate != nil {
		dateRange := types.DateRangeQuery{}

		if filter.SinceDate != nil {
			dateRange.Gte = utils.NewPointer(filter.SinceDate.Format(time.RFC3339))
		}
		if filter.BeforeDate != nil {
			dateRange.Lte = utils.NewPointer(filter.BeforeDate.Format(time.RFC3339))
		}

		filters = append(filters, types.Query{
			Range: map[string]types.RangeQuery{
				"created_at": dateRange,
			},
		})
	}

	boolQuery := &types.BoolQuery{
		Filter: filters,
		Should: shoulds,
	}
	if len(shoulds) > 0 {
		boolQuery.MinimumShouldMatch = 1
	}

	sortDirection := sortorder.Desc
	if filter.SortDirection == utils.SortDirectionAsc {
		sortDirection = sortorder.Asc
	}

	sortField := string(models.PersonSortByCreatedAt)
	if filter.SortBy != "" {
		sortField = string(filter.SortBy)
	} else if len(shoulds) > 0 {
		sortField = string(models.PersonSortByRelevance)
	}

	request := &elastic_search.Request{
		Size:  utils.NewPointer(limit + 1),
		Query: &types.Query{Bool: boolQuery},
		Sort: []types.SortCombinations{
			types.SortOptions{
				SortOptions: map[string]types.FieldSort{
					sortField: {Order: &sortDirection},
				},
			},
			types.SortOptions{
				SortOptions: map[string]types.FieldSort{
					"id": {Order: &sortorder.Asc},
				},
			},
		},
	}

	if filter.StartingAfter != nil {
		request.SearchAfter = filter.StartingAfter
	}

	return request
}

type personHit struct {
	ID          int64     `json:"id"`
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Sources []*models.PersonSource `json:"sources"`
}

func hitToPerson(hit types.Hit) (*models.Person, error) {
	log.Debug().Interface("score", hit.Score_).Interface("uuid", hit.Id_).Msg("Parsing Elasticsearch hit")

	var source personHit
	if err := json.Unmarshal(hit.Source_, &source); err != nil {
		return nil, fmt.Errorf("error parsing source: %w", err)
	}
	if source.UUID == "" {
		return nil, fmt.Errorf("missing uuid")
	}

	return &models.Person{
		ID:          source.ID,
		UUID:        source.UUID,
		Name:        source.Name,
		Description: source.Description,
		CreatedAt:   source.CreatedAt,
		UpdatedAt:   source.UpdatedAt,
		Sources:     source.Sources,
	}, nil
}
