package domain

import (
	"context"
	"time"
)

// Cart represents a user's shopping cart in the primary store
type Cart struct {
	ID        int64       `json:"id" db:"id"`
	UserID    int64       `json:"userId" db:"user_id"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
	Items     []*CartItem `json:"items" db:"-"`
}

// CartItem is a single product line in a cart, joined with the product's
// current name and price for display.
type CartItem struct {
	ID           int64   `json:"id" db:"id"`
	CartID       int64   `json:"cartId" db:"cart_id"`
	ProductID    int64   `json:"productId" db:"product_id" validate:"required,gt=0"`
	Quantity     int     `json:"quantity" db:"quantity" validate:"required,min=1"`
	ProductName  string  `json:"productName" db:"product_name"`
	ProductPrice float64 `json:"productPrice" db:"product_price"`
}

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// GetByUserID retrieves a user's cart with its items, creating an empty
	// cart row on first access
	GetByUserID(ctx context.Context, userID int64) (*Cart, error)

	// AddItem adds a product to the cart, summing quantities on duplicates
	AddItem(ctx context.Context, cartID int64, productID int64, quantity int) error

	// UpdateItemQuantity sets the quantity of a cart item
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error

	// RemoveItem deletes a single cart item
	RemoveItem(ctx context.Context, itemID int64) error

	// Clear deletes every item in a cart
	Clear(ctx context.Context, cartID int64) error
}
