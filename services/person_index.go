package services

import (
	"context"
	"errors"

	"github.com/foresturquhart/indexhook/elastic/indexes"
	"github.com/foresturquhart/indexhook/models"
	"github.com/foresturquhart/indexhook/search"
	"github.com/foresturquhart/indexhook/utils"
)

// PersonIndex builds search documents for people
type PersonIndex struct {
	load func(ctx context.Context, uuid string) (*models.Person, error)
}

var _ search.SearchIndex = (*PersonIndex)(nil)

func NewPersonIndex(load func(ctx context.Context, uuid string) (*models.Person, error)) *PersonIndex {
	return &PersonIndex{load: load}
}

func (i *PersonIndex) ContentType() string {
	return models.PersonContentType
}

func (i *PersonIndex) IndexName() string {
	return indexes.People
}

func (i *PersonIndex) Load(ctx context.Context, pk string) (search.Document, error) {
	person, err := i.load(ctx, pk)
	if err != nil {
		if errors.Is(err, utils.ErrPersonNotFound) {
			return nil, search.ErrObjectNotFound
		}
		return nil, err
	}

	return search.PersonDocument(person), nil
}
