package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrObjectNotFound is returned by SearchIndex.Load when the source row no
// longer exists
var ErrObjectNotFound = errors.New("object not found")

// Document is the body stored in the search engine
type Document map[string]any

// SearchIndex knows how to build search documents for one content type
type SearchIndex interface {
	// ContentType returns the "app.model" this index handles
	ContentType() string

	// IndexName returns the search engine index the documents live in
	IndexName() string

	// Load builds the document for the primary key
	Load(ctx context.Context, pk string) (Document, error)
}

// Registry maps content types to their search indexes
type Registry struct {
	mutex   sync.RWMutex
	indexes map[string]SearchIndex
}

func NewRegistry() *Registry {
	return &Registry{
		indexes: make(map[string]SearchIndex),
	}
}

// Register adds idx under its content type. Registering a content type twice
// is an error.
func (r *Registry) Register(idx SearchIndex) error {
	if idx == nil {
		return errors.New("nil search index")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	contentType := idx.ContentType()
	if _, dup := r.indexes[contentType]; dup {
		return fmt.Errorf("search index for %s is already registered", contentType)
	}
	r.indexes[contentType] = idx
	return nil
}

func (r *Registry) Get(contentType string) (SearchIndex, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	idx, ok := r.indexes[contentType]
	return idx, ok
}

// ContentTypes lists the registered content types in sorted order
func (r *Registry) ContentTypes() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	list := make([]string, 0, len(r.indexes))
	for contentType := range r.indexes {
		list = append(list, contentType)
	}
	sort.Strings(list)
	return list
}
