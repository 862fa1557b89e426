package domain

import (
	"context"
	"time"
)

// Product represents a product row in the primary store
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description *string   `json:"description,omitempty" db:"description"`
	Price       float64   `json:"price" db:"price" validate:"required,gte=0"`
	Stock       int       `json:"stock" db:"stock" validate:"gte=0"`
	CategoryID  int64     `json:"categoryId" db:"category_id" validate:"required,gt=0"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id int64) (*Product, error)

	// GetByIDs retrieves the products with the given IDs, preserving no
	// particular order
	GetByIDs(ctx context.Context, ids []int64) ([]*Product, error)

	// Exists reports whether a product with the given ID exists
	Exists(ctx context.Context, id int64) (bool, error)

	// List retrieves a paginated list of products, optionally filtered by
	// category (categoryID 0 means no filter)
	List(ctx context.Context, categoryID int64, limit, offset int) ([]*Product, error)

	// Count returns the number of products matching the category filter
	Count(ctx context.Context, categoryID int64) (int, error)

	// CategoryIDs returns the distinct categories of the given products
	CategoryIDs(ctx context.Context, productIDs []int64) ([]int64, error)

	// ListByCategories retrieves products in the given categories, excluding
	// excludeIDs
	ListByCategories(ctx context.Context, categoryIDs, excludeIDs []int64, limit int) ([]*Product, error)

	// Update updates an existing product
	Update(ctx context.Context, product *Product) error

	// Delete removes a product
	Delete(ctx context.Context, id int64) error
}
