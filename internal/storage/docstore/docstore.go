// Package docstore reads and writes the flexible claim application documents.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrNotFound      = errors.New("DOCUMENT_NOT_FOUND")
	ErrNotConfigured = errors.New("DOCSTORE_NOT_CONFIGURED")
)

// Document is a stored record with every field kept verbatim. The id is
// exposed under "_id".
type Document map[string]json.RawMessage

// String returns a top-level string field, or "" when absent or not a string.
func (d Document) String(key string) string {
	raw, ok := d[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// UpdateResult mirrors what a partial update did.
type UpdateResult struct {
	Matched  bool
	Modified bool
}

// Store is the find/insert/update-by-key capability.
type Store interface {
	FindByID(ctx context.Context, id string) (Document, error)
	Insert(ctx context.Context, id string, doc map[string]interface{}) error
	Update(ctx context.Context, id string, fields map[string]interface{}) (*UpdateResult, error)
}

// Elasticsearch keeps one index per collection.
type Elasticsearch struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewElasticsearch(client *elasticsearch.Client, index string, timeout time.Duration) *Elasticsearch {
	return &Elasticsearch{client: client, index: index, timeout: timeout}
}

func (e *Elasticsearch) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Elasticsearch) FindByID(ctx context.Context, id string) (Document, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	req := esapi.GetRequest{Index: e.index, DocumentID: id}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("document store get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if res.IsError() {
		return nil, fmt.Errorf("document store get error: %s", res.String())
	}

	var body struct {
		ID     string   `json:"_id"`
		Found  bool     `json:"found"`
		Source Document `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if !body.Found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	doc := body.Source
	if doc == nil {
		doc = Document{}
	}
	idRaw, _ := json.Marshal(id)
	doc["_id"] = idRaw
	return doc, nil
}

func (e *Elasticsearch) Insert(ctx context.Context, id string, doc map[string]interface{}) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	body, err := json.Marshal(withoutID(doc))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		OpType:     "create",
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("document store insert failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("document store insert error: %s", res.String())
	}
	return nil
}

// Update merges fields into the top level of the document.
func (e *Elasticsearch) Update(ctx context.Context, id string, fields map[string]interface{}) (*UpdateResult, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{"doc": withoutID(fields)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:      e.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("document store update failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return &UpdateResult{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("document store update error: %s", res.String())
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}
	return &UpdateResult{Matched: true, Modified: out.Result == "updated"}, nil
}

// _id is metadata in Elasticsearch and cannot live in the source.
func withoutID(fields map[string]interface{}) map[string]interface{} {
	if _, ok := fields["_id"]; !ok {
		return fields
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if k != "_id" {
			out[k] = v
		}
	}
	return out
}

// Unconfigured is used when no document store address was given.
type Unconfigured struct{}

func (Unconfigured) FindByID(context.Context, string) (Document, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Insert(context.Context, string, map[string]interface{}) error {
	return ErrNotConfigured
}

func (Unconfigured) Update(context.Context, string, map[string]interface{}) (*UpdateResult, error) {
	return nil, ErrNotConfigured
}
