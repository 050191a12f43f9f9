package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vestia/catalog-service/internal/domain"
	"github.com/vestia/catalog-service/internal/index"
	"github.com/vestia/catalog-service/internal/index/memory"
	"github.com/vestia/catalog-service/internal/repository"
	apperrors "github.com/vestia/catalog-service/pkg/errors"
)

type stubRepo struct {
	mu       sync.Mutex
	nextID   int64
	existing int64
	created  []domain.Product
}

func (s *stubRepo) Create(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.created = append(s.created, *p)
	return nil
}

func (s *stubRepo) GetByID(context.Context, int64) (*domain.Product, error) {
	return nil, apperrors.ErrNotFound
}

func (s *stubRepo) GetByIDs(context.Context, []int64) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubRepo) List(context.Context, repository.ProductFilter) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubRepo) SearchSubstring(context.Context, string, *string) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubRepo) Update(context.Context, *domain.Product) error { return nil }
func (s *stubRepo) Delete(context.Context, int64) error           { return nil }

func (s *stubRepo) Count(context.Context) (int64, error) {
	return s.existing + int64(len(s.created)), nil
}

// failingIndexer always rejects bulk requests.
type failingIndexer struct {
	memory.Index
}

func (f *failingIndexer) BulkUpsert(context.Context, []index.Document) error {
	return errors.New("cluster unavailable")
}

func newTestSeeder(repo repository.ProductRepository, idx index.Indexer) *Seeder {
	return New(repo, idx, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const sampleCSV = `name,description,price,sku,category
Knit Top,A soft knit top,199.00,SKU-001,Tops
Knit Dress,,299.00,,Dresses
Silk Scarf,Lightweight silk,89.50,SKU-003,
`

func TestRun_SeedsStoreAndIndex(t *testing.T) {
	repo := &stubRepo{}
	idx := memory.New()
	seeder := newTestSeeder(repo, idx)

	require.NoError(t, seeder.Run(context.Background(), strings.NewReader(sampleCSV)))

	require.Len(t, repo.created, 3)
	first := repo.created[0]
	assert.Equal(t, "Knit Top", first.Name)
	assert.Equal(t, 199.00, first.Price)
	require.NotNil(t, first.Description)
	assert.Equal(t, "A soft knit top", *first.Description)
	require.NotNil(t, first.SKU)
	assert.Equal(t, "SKU-001", *first.SKU)
	assert.True(t, first.IsActive)

	second := repo.created[1]
	assert.Nil(t, second.Description, "empty csv cells stay unset")
	assert.Nil(t, second.SKU)
	require.NotNil(t, second.Category)
	assert.Equal(t, "Dresses", *second.Category)

	ids, err := idx.SearchIDs(context.Background(), "knit", nil, 10)
	require.NoError(t, err)
	assert.Len(t, ids, 2, "seeded products must be searchable")
}

func TestRun_SkipsWhenStoreAlreadySeeded(t *testing.T) {
	repo := &stubRepo{existing: 5}
	seeder := newTestSeeder(repo, memory.New())

	require.NoError(t, seeder.Run(context.Background(), strings.NewReader(sampleCSV)))

	assert.Empty(t, repo.created)
}

func TestRun_IndexFailureDoesNotFailSeeding(t *testing.T) {
	repo := &stubRepo{}
	seeder := newTestSeeder(repo, &failingIndexer{})

	require.NoError(t, seeder.Run(context.Background(), strings.NewReader(sampleCSV)))

	assert.Len(t, repo.created, 3, "store stays seeded when the index is down")
}

func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	_, err := parseCSV(strings.NewReader("description,price\nfoo,1.00\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name"`)

	_, err = parseCSV(strings.NewReader("name,description\nfoo,bar\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"price"`)
}

func TestParseCSV_InvalidPrice(t *testing.T) {
	_, err := parseCSV(strings.NewReader("name,price\nKnit Top,free\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid price")

	_, err = parseCSV(strings.NewReader("name,price\nKnit Top,-1\n"))
	assert.Error(t, err)
}

func TestParseCSV_HeaderOnlyIsEmptySeed(t *testing.T) {
	products, err := parseCSV(strings.NewReader("name,price\n"))
	require.NoError(t, err)
	assert.Empty(t, products)
}
