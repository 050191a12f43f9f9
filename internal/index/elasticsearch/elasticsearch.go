package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/vestia/catalog-service/internal/index"
)

// Index is an Elasticsearch-backed implementation of the index.Indexer
// interface. All requests carry searchTimeout as an upper bound so a slow
// cluster cannot stall the caller past the fallback budget.
type Index struct {
	client        *elasticsearch.Client
	indexName     string
	searchTimeout time.Duration
	transport     http.RoundTripper
	logger        *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source index.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// Option configures the Index.
type Option func(*Index)

// WithTransport overrides the HTTP transport used by the Elasticsearch
// client. Intended for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(i *Index) {
		i.transport = rt
	}
}

// New creates a new Elasticsearch index adapter connected to the given URL.
// It only constructs the client; call EnsureIndex to create the index itself,
// so a down cluster at startup does not prevent the service from starting.
// If indexName is empty, DefaultIndexName ("products") is used.
func New(esURL, indexName string, searchTimeout time.Duration, logger *slog.Logger, opts ...Option) (*Index, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	if searchTimeout <= 0 {
		searchTimeout = 2 * time.Second
	}

	idx := &Index{
		indexName:     indexName,
		searchTimeout: searchTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(idx)
	}

	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
		Transport: idx.transport,
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}
	idx.client = client

	return idx, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (i *Index) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex checks whether the products index exists and creates it with
// the fixed mapping if not. An existing index is left untouched.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists(
		[]string{i.indexName},
		i.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		i.logger.Info("elasticsearch index already exists", "index", i.indexName)
		return nil
	}

	mapping := buildIndexMapping()
	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("create index: %s", i.decodeError(res.Body, res.Status()))
	}

	i.logger.Info("elasticsearch index created", "index", i.indexName)
	return nil
}

// Upsert adds or fully replaces a single product document.
func (i *Index) Upsert(ctx context.Context, doc index.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.searchTimeout)
	defer cancel()

	res, err := i.client.Index(
		i.indexName,
		bytes.NewReader(data),
		i.client.Index.WithDocumentID(strconv.FormatInt(doc.ID, 10)),
		i.client.Index.WithRefresh("true"),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch upsert: %s", i.decodeError(res.Body, res.Status()))
	}

	i.logger.Debug("indexed product", "id", doc.ID, "name", doc.Name)
	return nil
}

// Remove deletes a product document by its id. A 404 from the index is not an
// error: the delete is idempotent.
func (i *Index) Remove(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, i.searchTimeout)
	defer cancel()

	res, err := i.client.Delete(
		i.indexName,
		strconv.FormatInt(id, 10),
		i.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete: %s", i.decodeError(res.Body, res.Status()))
	}

	i.logger.Debug("deleted product from index", "id", id)
	return nil
}

// BulkUpsert adds or replaces multiple product documents using the bulk
// NDJSON API.
func (i *Index) BulkUpsert(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for idx := range docs {
		action := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    strconv.FormatInt(docs[idx].ID, 10),
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(docs[idx]); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := i.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		i.client.Bulk.WithIndex(i.indexName),
		i.client.Bulk.WithRefresh("true"),
		i.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch bulk: %s", i.decodeError(res.Body, res.Status()))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	i.logger.Info("bulk indexed products", "count", len(docs))
	return nil
}

// SearchIDs executes a ranked multi-field text query restricted to active
// documents and returns matching ids in rank order, duplicates removed.
// Any failure, including the bounded timeout, comes back as an error so the
// caller can fall back to the record store.
func (i *Index) SearchIDs(ctx context.Context, query string, category *string, limit int) ([]int64, error) {
	esQuery := i.buildSearchQuery(query, category, limit)

	data, err := json.Marshal(esQuery)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.searchTimeout)
	defer cancel()

	res, err := i.client.Search(
		i.client.Search.WithIndex(i.indexName),
		i.client.Search.WithBody(bytes.NewReader(data)),
		i.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search: %s", i.decodeError(res.Body, res.Status()))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	ids := make([]int64, 0, len(esResp.Hits.Hits))
	seen := make(map[int64]struct{}, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		id := hit.Source.ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}

// buildSearchQuery constructs the Elasticsearch query DSL as a map.
func (i *Index) buildSearchQuery(query string, category *string, limit int) map[string]any {
	must := []any{
		map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name^3", "description", "category", "color", "size"},
			},
		},
	}

	if category != nil && *category != "" {
		must = append(must, map[string]any{
			"term": map[string]any{"category": *category},
		})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": must,
				"filter": []any{
					map[string]any{"term": map[string]any{"is_active": true}},
				},
			},
		},
		"size": limit,
	}
}

// decodeError extracts a readable message from an Elasticsearch error body.
func (i *Index) decodeError(body io.Reader, status string) string {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Sprintf("%s: %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return "unexpected status " + status
}
