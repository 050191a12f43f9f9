package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vestia/catalog-service/internal/index"
)

// Index is an in-memory implementation of the index.Indexer interface. It
// scores documents with the same field weighting as the Elasticsearch mapping
// (name highest, then description, category, color, size) so rank order is
// comparable. Thread-safe via sync.RWMutex.
type Index struct {
	mu   sync.RWMutex
	docs map[int64]index.Document
}

// New creates a new in-memory index.
func New() *Index {
	return &Index{
		docs: make(map[int64]index.Document),
	}
}

// EnsureIndex is a no-op: the map always exists. Calling it repeatedly never
// errors and never clears existing documents.
func (i *Index) EnsureIndex(_ context.Context) error {
	return nil
}

// Upsert adds or replaces a single document.
func (i *Index) Upsert(_ context.Context, doc index.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.docs[doc.ID] = doc
	return nil
}

// Remove deletes a document by id. Removing an absent id is a no-op.
func (i *Index) Remove(_ context.Context, id int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.docs, id)
	return nil
}

// BulkUpsert adds or replaces multiple documents.
func (i *Index) BulkUpsert(_ context.Context, docs []index.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range docs {
		i.docs[docs[idx].ID] = docs[idx]
	}
	return nil
}

// SearchIDs scores active documents against the query and returns ids ordered
// by descending score, ties broken by ascending id for stable results.
func (i *Index) SearchIDs(_ context.Context, query string, category *string, limit int) ([]int64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	type scored struct {
		id    int64
		score int
	}

	queryLower := strings.ToLower(query)
	var matched []scored

	for id, doc := range i.docs {
		if !doc.IsActive {
			continue
		}
		if category != nil && *category != "" && doc.Category != *category {
			continue
		}
		s := score(doc, queryLower)
		if s == 0 {
			continue
		}
		matched = append(matched, scored{id: id, score: s})
	}

	sort.Slice(matched, func(a, b int) bool {
		if matched[a].score != matched[b].score {
			return matched[a].score > matched[b].score
		}
		return matched[a].id < matched[b].id
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	ids := make([]int64, len(matched))
	for idx, m := range matched {
		ids[idx] = m.id
	}
	return ids, nil
}

// score returns a weighted substring-match score, zero when nothing matches.
func score(doc index.Document, queryLower string) int {
	if queryLower == "" {
		return 0
	}

	s := 0
	if strings.Contains(strings.ToLower(doc.Name), queryLower) {
		s += 3
	}
	if strings.Contains(strings.ToLower(doc.Description), queryLower) {
		s++
	}
	if strings.Contains(strings.ToLower(doc.Category), queryLower) {
		s++
	}
	if strings.Contains(strings.ToLower(doc.Color), queryLower) {
		s++
	}
	if strings.Contains(strings.ToLower(doc.Size), queryLower) {
		s++
	}
	return s
}
