package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vestia/catalog-service/internal/domain"
	"github.com/vestia/catalog-service/internal/repository"
	"github.com/vestia/catalog-service/pkg/database"
	apperrors "github.com/vestia/catalog-service/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, description, price, category, color, size, sku, images, stock, is_active, created_at, updated_at`

// Create inserts a new product. The database assigns the id and timestamps,
// which are scanned back into the product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	imagesJSON, err := marshalImages(p.Images)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (name, description, price, category, color, size, sku, images, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Color,
		p.Size,
		p.SKU,
		imagesJSON,
		p.Stock,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := r.scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs retrieves all products whose ids are in the given set, in id order.
// Ids absent from the store are silently missing from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ANY($1) ORDER BY id`, productColumns)

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	return r.collectProducts(rows)
}

// List returns products matching the given filter, paginated by offset/limit.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.InStock {
		conditions = append(conditions, "stock > 0")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY id
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return r.collectProducts(rows)
}

// SearchSubstring is the fallback search path: a case-insensitive substring
// match against name, description, and category, optionally narrowed to an
// exact category.
func (r *ProductRepository) SearchSubstring(ctx context.Context, query string, category *string) ([]domain.Product, error) {
	pattern := "%" + query + "%"

	conditions := "(name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1)"
	args := []any{pattern}

	if category != nil {
		conditions += " AND category = $2"
		args = append(args, *category)
	}

	sql := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY id`, productColumns, conditions)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	return r.collectProducts(rows)
}

// Update persists all fields of the given product and refreshes updated_at.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	imagesJSON, err := marshalImages(p.Images)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, color = $5,
		    size = $6, sku = $7, images = $8, stock = $9, is_active = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Color,
		p.Size,
		p.SKU,
		imagesJSON,
		p.Stock,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product by its id.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// Count returns the total number of products in the store.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// scanProduct scans a single product row.
func (r *ProductRepository) scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p          domain.Product
		imagesJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.Color,
		&p.Size,
		&p.SKU,
		&imagesJSON,
		&p.Stock,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if imagesJSON != nil {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}

	return &p, nil
}

// collectProducts scans all rows into a slice of products.
func (r *ProductRepository) collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	products := []domain.Product{}

	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// marshalImages encodes the images list for the JSONB column. A nil slice is
// stored as SQL NULL, not the JSON literal "null".
func marshalImages(images []string) (any, error) {
	if images == nil {
		return nil, nil
	}
	data, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}
	return data, nil
}
