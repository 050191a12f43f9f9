package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/vestia/catalog-service/internal/domain"
	"github.com/vestia/catalog-service/internal/index"
	"github.com/vestia/catalog-service/internal/repository"
)

// bulkBatchSize caps how many documents go into one bulk index request.
const bulkBatchSize = 500

// Seeder loads an initial product dataset into the record store and the
// search index. Seeding is skipped entirely when the store already has
// products, so rerunning it is safe.
type Seeder struct {
	repo    repository.ProductRepository
	indexer index.Indexer
	logger  *slog.Logger
}

// New creates a new seeder.
func New(repo repository.ProductRepository, indexer index.Indexer, logger *slog.Logger) *Seeder {
	return &Seeder{
		repo:    repo,
		indexer: indexer,
		logger:  logger,
	}
}

// Run reads products from the CSV stream and inserts them. The CSV must have
// a header row; recognized columns are name, description, price, and sku.
// After inserting, documents are bulk-indexed best-effort: an index failure
// leaves the store seeded and is only logged.
func (s *Seeder) Run(ctx context.Context, r io.Reader) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		s.logger.Info("store already seeded, skipping",
			slog.Int64("existing_products", count),
		)
		return nil
	}

	products, err := parseCSV(r)
	if err != nil {
		return err
	}

	var docs []index.Document
	for i := range products {
		if err := s.repo.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("insert seed product %q: %w", products[i].Name, err)
		}
		docs = append(docs, index.DocumentFromProduct(&products[i]))
	}

	for start := 0; start < len(docs); start += bulkBatchSize {
		end := start + bulkBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := s.indexer.BulkUpsert(ctx, docs[start:end]); err != nil {
			s.logger.Error("bulk index of seed data failed, ignoring",
				slog.Int("batch_start", start),
				slog.String("error", err.Error()),
			)
			break
		}
	}

	s.logger.Info("seeding complete", slog.Int("products", len(products)))
	return nil
}

// parseCSV decodes the seed file into products.
func parseCSV(r io.Reader) ([]domain.Product, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("seed csv missing required column %q", "name")
	}
	if _, ok := cols["price"]; !ok {
		return nil, fmt.Errorf("seed csv missing required column %q", "price")
	}

	var products []domain.Product
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		line++

		price, err := strconv.ParseFloat(record[cols["price"]], 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("line %d: invalid price %q", line, record[cols["price"]])
		}

		p := domain.Product{
			Name:     record[cols["name"]],
			Price:    price,
			IsActive: true,
		}
		if i, ok := cols["description"]; ok && record[i] != "" {
			v := record[i]
			p.Description = &v
		}
		if i, ok := cols["sku"]; ok && record[i] != "" {
			v := record[i]
			p.SKU = &v
		}
		if i, ok := cols["category"]; ok && record[i] != "" {
			v := record[i]
			p.Category = &v
		}

		products = append(products, p)
	}

	return products, nil
}
