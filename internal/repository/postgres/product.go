package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
)

// ProductRepository implements domain.ProductRepository for PostgreSQL
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CategoryID,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		var pqErr *pq.Error
		// 23503 foreign_key_violation: category does not exist
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, stock, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// GetByIDs retrieves the products with the given IDs
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	query := `
		SELECT id, name, description, price, stock, category_id, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`

	var products []*domain.Product
	err := r.db.SelectContext(ctx, &products, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	return products, nil
}

// Exists reports whether a product with the given ID exists
func (r *ProductRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// List retrieves a paginated list of products, optionally filtered by category
func (r *ProductRepository) List(ctx context.Context, categoryID int64, limit, offset int) ([]*domain.Product, error) {
	query := `
		SELECT id, name, description, price, stock, category_id, created_at, updated_at
		FROM products
		WHERE ($1 = 0 OR category_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var products []*domain.Product
	err := r.db.SelectContext(ctx, &products, query, categoryID, limit, offset)
	if err != nil {
		return nil, err
	}

	return products, nil
}

// Count returns the number of products matching the category filter
func (r *ProductRepository) Count(ctx context.Context, categoryID int64) (int, error) {
	query := `SELECT COUNT(*) FROM products WHERE ($1 = 0 OR category_id = $1)`

	var count int
	err := r.db.GetContext(ctx, &count, query, categoryID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CategoryIDs returns the distinct categories of the given products
func (r *ProductRepository) CategoryIDs(ctx context.Context, productIDs []int64) ([]int64, error) {
	if len(productIDs) == 0 {
		return []int64{}, nil
	}

	query := `SELECT DISTINCT category_id FROM products WHERE id = ANY($1)`

	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// ListByCategories retrieves products in the given categories, excluding excludeIDs
func (r *ProductRepository) ListByCategories(ctx context.Context, categoryIDs, excludeIDs []int64, limit int) ([]*domain.Product, error) {
	if len(categoryIDs) == 0 {
		return []*domain.Product{}, nil
	}

	query := `
		SELECT id, name, description, price, stock, category_id, created_at, updated_at
		FROM products
		WHERE category_id = ANY($1) AND NOT (id = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3
	`

	var products []*domain.Product
	err := r.db.SelectContext(ctx, &products, query, pq.Array(categoryIDs), pq.Array(excludeIDs), limit)
	if err != nil {
		return nil, err
	}

	return products, nil
}

// Update updates an existing product
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category_id = $5, updated_at = $6
		WHERE id = $7
		RETURNING updated_at
	`

	product.UpdatedAt = time.Now()

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CategoryID,
		product.UpdatedAt,
		product.ID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
