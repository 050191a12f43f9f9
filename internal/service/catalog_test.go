package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vestia/catalog-service/internal/domain"
	"github.com/vestia/catalog-service/internal/index"
	"github.com/vestia/catalog-service/internal/repository"
	apperrors "github.com/vestia/catalog-service/pkg/errors"
)

// --- Mock Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) SearchSubstring(ctx context.Context, query string, category *string) ([]domain.Product, error) {
	args := m.Called(ctx, query, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Indexer ---

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) EnsureIndex(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockIndexer) Upsert(ctx context.Context, doc index.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockIndexer) Remove(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIndexer) BulkUpsert(ctx context.Context, docs []index.Document) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *mockIndexer) SearchIDs(ctx context.Context, query string, category *string, limit int) ([]int64, error) {
	args := m.Called(ctx, query, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo *mockProductRepository, idx *mockIndexer) *CatalogService {
	return NewCatalogService(repo, idx, newTestLogger())
}

func strPtr(s string) *string { return &s }

func sampleProduct(id int64, name string) domain.Product {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Product{
		ID:        id,
		Name:      name,
		Price:     199.00,
		Category:  strPtr("Tops"),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Create ---

func TestCreateProduct_Success(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Run(func(args mock.Arguments) {
		p := args.Get(1).(*domain.Product)
		p.ID = 42
	}).Return(nil)
	idx.On("Upsert", ctx, mock.AnythingOfType("index.Document")).Return(nil)

	product, err := svc.CreateProduct(ctx, &CreateProductInput{
		Name:     "Knit Top",
		Price:    199.00,
		Category: strPtr("Tops"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), product.ID)
	assert.True(t, product.IsActive, "is_active should default to true")
	repo.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestCreateProduct_SucceedsWhenIndexUpsertFails(t *testing.T) {
	// Write durability is independent of the index: a failing upsert must
	// never fail the create.
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Product).ID = 7
	}).Return(nil)
	idx.On("Upsert", ctx, mock.AnythingOfType("index.Document")).Return(errors.New("connection refused"))

	product, err := svc.CreateProduct(ctx, &CreateProductInput{Name: "Knit Top", Price: 199.00})

	require.NoError(t, err)
	assert.Equal(t, int64(7), product.ID)
	repo.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestCreateProduct_ExplicitInactive(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	inactive := false
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)
	idx.On("Upsert", ctx, mock.AnythingOfType("index.Document")).Return(nil)

	product, err := svc.CreateProduct(ctx, &CreateProductInput{
		Name:     "Archived Top",
		Price:    10,
		IsActive: &inactive,
	})

	require.NoError(t, err)
	assert.False(t, product.IsActive)
}

func TestCreateProduct_StoreFailurePropagates(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Return(errors.New("db down"))

	_, err := svc.CreateProduct(ctx, &CreateProductInput{Name: "Knit Top", Price: 199.00})

	require.Error(t, err)
	idx.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

// --- Get / List ---

func TestGetProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(99)).Return(nil, apperrors.NotFound("product", 99))

	_, err := svc.GetProduct(ctx, 99)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListProducts_AppliesDefaultAndCapLimits(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("List", ctx, repository.ProductFilter{Limit: 20}).Return([]domain.Product{}, nil).Once()
	_, err := svc.ListProducts(ctx, repository.ProductFilter{})
	require.NoError(t, err)

	repo.On("List", ctx, repository.ProductFilter{Limit: 100}).Return([]domain.Product{}, nil).Once()
	_, err = svc.ListProducts(ctx, repository.ProductFilter{Limit: 500})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

// --- Update ---

func TestUpdateProduct_PartialPatchPreservesUnsetFields(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	existing := sampleProduct(5, "Knit Top")
	existing.Color = strPtr("Black")

	repo.On("GetByID", ctx, int64(5)).Return(&existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)
	idx.On("Upsert", ctx, mock.AnythingOfType("index.Document")).Return(nil)

	newPrice := 149.50
	updated, err := svc.UpdateProduct(ctx, 5, &UpdateProductInput{Price: &newPrice})

	require.NoError(t, err)
	assert.Equal(t, 149.50, updated.Price)
	assert.Equal(t, "Knit Top", updated.Name, "unset fields must be preserved")
	assert.Equal(t, "Black", *updated.Color)
	repo.AssertExpectations(t)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(99)).Return(nil, apperrors.NotFound("product", 99))

	_, err := svc.UpdateProduct(ctx, 99, &UpdateProductInput{})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	idx.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUpdateProduct_ReindexesFullDocument(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	existing := sampleProduct(5, "Knit Top")
	repo.On("GetByID", ctx, int64(5)).Return(&existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	var indexed index.Document
	idx.On("Upsert", ctx, mock.AnythingOfType("index.Document")).Run(func(args mock.Arguments) {
		indexed = args.Get(1).(index.Document)
	}).Return(nil)

	name := "Knit Top v2"
	_, err := svc.UpdateProduct(ctx, 5, &UpdateProductInput{Name: &name})

	require.NoError(t, err)
	assert.Equal(t, int64(5), indexed.ID)
	assert.Equal(t, "Knit Top v2", indexed.Name)
	assert.Equal(t, "Tops", indexed.Category, "full document replace must carry unchanged fields")
}

// --- Delete ---

func TestDeleteProduct_RemovesFromStoreAndIndex(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("Delete", ctx, int64(5)).Return(nil)
	idx.On("Remove", ctx, int64(5)).Return(nil)

	require.NoError(t, svc.DeleteProduct(ctx, 5))
	repo.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestDeleteProduct_SucceedsWhenIndexRemoveFails(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("Delete", ctx, int64(5)).Return(nil)
	idx.On("Remove", ctx, int64(5)).Return(errors.New("timeout"))

	assert.NoError(t, svc.DeleteProduct(ctx, 5))
}

func TestDeleteProduct_SecondDeleteNotFound(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	repo.On("Delete", ctx, int64(5)).Return(apperrors.NotFound("product", 5))

	err := svc.DeleteProduct(ctx, 5)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	idx.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

// --- Search ---

func TestSearchProducts_RankedPathPreservesIndexOrder(t *testing.T) {
	// The index ranking, not the store's id order, decides result order.
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	idx.On("SearchIDs", ctx, "knit", (*string)(nil), 50).Return([]int64{3, 1, 2}, nil)
	// The store returns id order; the service must reorder to [3, 1, 2].
	repo.On("GetByIDs", ctx, []int64{3, 1, 2}).Return([]domain.Product{
		sampleProduct(1, "Knit Top"),
		sampleProduct(2, "Knit Dress"),
		sampleProduct(3, "Knit Scarf"),
	}, nil)

	products, err := svc.SearchProducts(ctx, "knit", nil)

	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, int64(3), products[0].ID)
	assert.Equal(t, int64(1), products[1].ID)
	assert.Equal(t, int64(2), products[2].ID)
	repo.AssertNotCalled(t, "SearchSubstring", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchProducts_IndexErrorFallsBackToStore(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	fallback := []domain.Product{sampleProduct(1, "Knit Top")}

	idx.On("SearchIDs", ctx, "knit", (*string)(nil), 50).Return(nil, errors.New("connection refused"))
	repo.On("SearchSubstring", ctx, "knit", (*string)(nil)).Return(fallback, nil)

	products, err := svc.SearchProducts(ctx, "knit", nil)

	require.NoError(t, err)
	assert.Equal(t, fallback, products)
	repo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestSearchProducts_EmptyIndexResultFallsBackToStore(t *testing.T) {
	// Zero index hits are treated like an unavailable index: the substring
	// path maximizes recall when the index may simply never have been
	// populated.
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	fallback := []domain.Product{sampleProduct(2, "Knit Dress")}

	idx.On("SearchIDs", ctx, "knit", (*string)(nil), 50).Return([]int64{}, nil)
	repo.On("SearchSubstring", ctx, "knit", (*string)(nil)).Return(fallback, nil)

	products, err := svc.SearchProducts(ctx, "knit", nil)

	require.NoError(t, err)
	assert.Equal(t, fallback, products)
}

func TestSearchProducts_DropsIdsMissingFromStore(t *testing.T) {
	// An id the index returns but the store no longer has (raced with a
	// delete) is dropped silently.
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	idx.On("SearchIDs", ctx, "knit", (*string)(nil), 50).Return([]int64{3, 99, 1}, nil)
	repo.On("GetByIDs", ctx, []int64{3, 99, 1}).Return([]domain.Product{
		sampleProduct(1, "Knit Top"),
		sampleProduct(3, "Knit Scarf"),
	}, nil)

	products, err := svc.SearchProducts(ctx, "knit", nil)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(3), products[0].ID)
	assert.Equal(t, int64(1), products[1].ID)
}

func TestSearchProducts_CategoryFilterForwarded(t *testing.T) {
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	category := strPtr("Tops")
	idx.On("SearchIDs", ctx, "knit", category, 50).Return(nil, errors.New("down"))
	repo.On("SearchSubstring", ctx, "knit", category).Return([]domain.Product{}, nil)

	_, err := svc.SearchProducts(ctx, "knit", category)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestSearchProducts_StoreFailureOnFallbackPropagates(t *testing.T) {
	// There is no fallback for the source of truth.
	repo := new(mockProductRepository)
	idx := new(mockIndexer)
	svc := newTestService(repo, idx)
	ctx := context.Background()

	idx.On("SearchIDs", ctx, "knit", (*string)(nil), 50).Return(nil, errors.New("index down"))
	repo.On("SearchSubstring", ctx, "knit", (*string)(nil)).Return(nil, errors.New("db down"))

	_, err := svc.SearchProducts(ctx, "knit", nil)

	assert.Error(t, err)
}
