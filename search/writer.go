package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog/log"
)

// Writer stores and removes documents in Elasticsearch
type Writer struct {
	transport esapi.Transport
	refresh   string
}

// NewWriter creates a writer on top of any Elasticsearch transport, such as
// *elasticsearch.TypedClient
func NewWriter(transport esapi.Transport) *Writer {
	return &Writer{
		transport: transport,
		refresh:   "true",
	}
}

// Update indexes doc under id, replacing any previous version
func (w *Writer) Update(ctx context.Context, index string, id string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		// Make the document immediately searchable
		Refresh: w.refresh,
	}

	res, err := req.Do(ctx, w.transport)
	if err != nil {
		return fmt.Errorf("error executing index request: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return decodeError(res, "error indexing document")
	}

	return nil
}

// Remove deletes the document with id. A missing document is not an error.
func (w *Writer) Remove(ctx context.Context, index string, id string) error {
	req := esapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
		Refresh:    w.refresh,
	}

	res, err := req.Do(ctx, w.transport)
	if err != nil {
		return fmt.Errorf("error executing delete request: %w", err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return decodeError(res, "error deleting document from index")
	}

	return nil
}

func decodeError(res *esapi.Response, msg string) error {
	var e map[string]any
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return fmt.Errorf("%s [status: %s]: error parsing the response body: %w", msg, res.Status(), err)
	}
	return fmt.Errorf("%s [status: %s]: %v", msg, res.Status(), e)
}

func closeBody(res *esapi.Response) {
	if res.Body == nil {
		return
	}
	if err := res.Body.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Elasticsearch response body")
	}
}
