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

// CartRepository implements domain.CartRepository for PostgreSQL
type CartRepository struct {
	db *sqlx.DB
}

// NewCartRepository creates a new PostgreSQL cart repository
func NewCartRepository(db *sqlx.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetByUserID retrieves a user's cart with its items, creating an empty cart
// row on first access
func (r *CartRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart

	query := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`
	err := r.db.GetContext(ctx, &cart, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		now := time.Now()
		insert := `
			INSERT INTO carts (user_id, created_at, updated_at)
			VALUES ($1, $2, $2)
			RETURNING id, user_id, created_at, updated_at
		`
		err = r.db.GetContext(ctx, &cart, insert, userID, now)
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	itemsQuery := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		       p.name AS product_name, p.price AS product_price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id ASC
	`
	items := []*domain.CartItem{}
	if err := r.db.SelectContext(ctx, &items, itemsQuery, cart.ID); err != nil {
		return nil, err
	}

	cart.Items = items
	return &cart, nil
}

// AddItem adds a product to the cart, summing quantities on duplicates
func (r *CartRepository) AddItem(ctx context.Context, cartID int64, productID int64, quantity int) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	_, err := r.db.ExecContext(ctx, query, cartID, productID, quantity)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// UpdateItemQuantity sets the quantity of a cart item
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	query := `UPDATE cart_items SET quantity = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, quantity, itemID)
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

// RemoveItem deletes a single cart item
func (r *CartRepository) RemoveItem(ctx context.Context, itemID int64) error {
	query := `DELETE FROM cart_items WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, itemID)
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

// Clear deletes every item in a cart
func (r *CartRepository) Clear(ctx context.Context, cartID int64) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`

	_, err := r.db.ExecContext(ctx, query, cartID)
	return err
}
