package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vestia/catalog-service/internal/domain"
	"github.com/vestia/catalog-service/internal/index"
	"github.com/vestia/catalog-service/internal/repository"
)

// searchIDLimit caps how many ranked ids are requested from the index per
// search.
const searchIDLimit = 50

// CatalogService coordinates the record store and the search index. It is the
// only component that sequences calls across both: writes commit to the store
// first and treat indexing as best-effort, reads fall back to the store when
// the index cannot answer. Callers never learn which path served a search.
type CatalogService struct {
	repo    repository.ProductRepository
	indexer index.Indexer
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, indexer index.Indexer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:    repo,
		indexer: indexer,
		logger:  logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description *string
	Price       float64
	Category    *string
	Color       *string
	Size        *string
	SKU         *string
	Images      []string
	Stock       *int
	IsActive    *bool
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Color       *string
	Size        *string
	SKU         *string
	Images      []string
	Stock       *int
	IsActive    *bool
}

// CreateProduct inserts a product into the record store, then indexes it
// best-effort. An index failure never fails the create.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	product := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Color:       input.Color,
		Size:        input.Size,
		SKU:         input.SKU,
		Images:      input.Images,
		Stock:       input.Stock,
		IsActive:    true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.indexProduct(ctx, product)

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// GetProduct retrieves a product by its id from the record store. The index
// is never consulted.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated list from the record store.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// UpdateProduct applies partial updates to an existing product and re-indexes
// the full resulting document best-effort.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Color != nil {
		product.Color = input.Color
	}
	if input.Size != nil {
		product.Size = input.Size
	}
	if input.SKU != nil {
		product.SKU = input.SKU
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Stock != nil {
		product.Stock = input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.indexProduct(ctx, product)

	s.logger.InfoContext(ctx, "product updated",
		slog.Int64("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product from the record store, then from the index
// best-effort. Deleting an id absent from the store returns NotFound.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.indexer.Remove(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove product from index, ignoring",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.Int64("product_id", id),
	)

	return nil
}

// SearchProducts answers a text search. It asks the index for a ranked id
// list first; whenever the index errors or has zero hits it falls back to a
// substring match against the record store, so the caller always gets an
// answer while the store is up.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, category *string) ([]domain.Product, error) {
	ids, err := s.indexer.SearchIDs(ctx, query, category, searchIDLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "index search failed, falling back to store",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return s.searchFallback(ctx, query, category)
	}

	// Zero hits also falls through: an empty index is indistinguishable from
	// a never-populated one, and the substring path maximizes recall at the
	// cost of bypassing ranking.
	if len(ids) == 0 {
		return s.searchFallback(ctx, query, category)
	}

	products, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch search results: %w", err)
	}

	return reorderByRank(products, ids), nil
}

// searchFallback is the store-backed substring path.
func (s *CatalogService) searchFallback(ctx context.Context, query string, category *string) ([]domain.Product, error) {
	products, err := s.repo.SearchSubstring(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}
	return products, nil
}

// reorderByRank returns the fetched products in the index's ranking order.
// Ids the store no longer has (raced with a delete) are dropped silently.
func reorderByRank(products []domain.Product, rankedIDs []int64) []domain.Product {
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]domain.Product, 0, len(products))
	for _, id := range rankedIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// indexProduct projects the product into the index, logging and discarding
// any failure. Staleness self-heals on the next write to the same id.
func (s *CatalogService) indexProduct(ctx context.Context, product *domain.Product) {
	if err := s.indexer.Upsert(ctx, index.DocumentFromProduct(product)); err != nil {
		s.logger.ErrorContext(ctx, "failed to index product, ignoring",
			slog.Int64("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}
