package index

import (
	"context"

	"github.com/vestia/catalog-service/internal/domain"
)

// Document is the projection of a product stored in the search index. Price
// loses decimal precision here; the record store keeps the authoritative value.
type Document struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Color       string   `json:"color"`
	Size        string   `json:"size"`
	SKU         string   `json:"sku"`
	Images      []string `json:"images"`
	Stock       int      `json:"stock"`
	IsActive    bool     `json:"is_active"`
}

// DocumentFromProduct projects a product into its index document.
func DocumentFromProduct(p *domain.Product) Document {
	doc := Document{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Images:   p.Images,
		IsActive: p.IsActive,
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	if p.Category != nil {
		doc.Category = *p.Category
	}
	if p.Color != nil {
		doc.Color = *p.Color
	}
	if p.Size != nil {
		doc.Size = *p.Size
	}
	if p.SKU != nil {
		doc.SKU = *p.SKU
	}
	if p.Stock != nil {
		doc.Stock = *p.Stock
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}
	return doc
}

// Indexer is the contract between the orchestrator and the search index.
//
// Error semantics are deliberately asymmetric. Write operations (Upsert,
// Remove, BulkUpsert) return their error for the caller to log and discard:
// a lost index write is repaired by the next write to the same id. SearchIDs
// returns a non-nil error whenever the index could not answer, which is
// distinct from a nil error with zero ids (a genuine empty result). The
// caller's fallback decision depends on that distinction.
type Indexer interface {
	// EnsureIndex creates the index with its fixed mapping if it does not
	// exist. Idempotent; never alters an existing index.
	EnsureIndex(ctx context.Context) error

	// Upsert writes the full document keyed by doc.ID, replacing any
	// previous version.
	Upsert(ctx context.Context, doc Document) error

	// Remove deletes the document keyed by id. Removing an absent document
	// is not an error.
	Remove(ctx context.Context, id int64) error

	// BulkUpsert writes multiple documents in one request.
	BulkUpsert(ctx context.Context, docs []Document) error

	// SearchIDs runs a ranked text query over active documents, optionally
	// narrowed to an exact category, and returns at most limit ids in rank
	// order with duplicates removed.
	SearchIDs(ctx context.Context, query string, category *string, limit int) ([]int64, error)
}
