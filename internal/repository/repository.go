package repository

import (
	"context"

	"github.com/vestia/catalog-service/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Category *string
	MinPrice *float64
	MaxPrice *float64
	InStock  bool
	Offset   int
	Limit    int
}

// ProductRepository defines the interface for product persistence operations.
// It is the only way the rest of the service touches the record store; it has
// no knowledge of the search index.
type ProductRepository interface {
	// Create inserts a new product. The store assigns ID, CreatedAt, and
	// UpdatedAt, which are written back into the given product.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its identifier.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetByIDs retrieves all products whose ids are in the given set, in
	// store-default (id) order. Missing ids are simply absent from the result.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)

	// List returns products matching the given filter.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)

	// SearchSubstring performs a case-insensitive substring match of query
	// against name, description, and category, optionally narrowed to an
	// exact category. Results come back in id order.
	SearchSubstring(ctx context.Context, query string, category *string) ([]domain.Product, error)

	// Update persists all fields of the given product and refreshes UpdatedAt.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier.
	Delete(ctx context.Context, id int64) error

	// Count returns the total number of products in the store.
	Count(ctx context.Context) (int64, error)
}
