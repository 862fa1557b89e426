package cart

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	appvalidator "github.com/techmarket-labs/techmarket-api/internal/pkg/validator"
)

// AddRequest is the inbound payload for adding a product to a cart.
type AddRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

// Service handles shopping cart operations
type Service struct {
	repo     domain.CartRepository
	products domain.ProductRepository
	users    domain.UserRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new cart service
func NewService(repo domain.CartRepository, products domain.ProductRepository, users domain.UserRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		users:    users,
		validate: appvalidator.Get(),
		logger:   log,
	}
}

// Get returns the user's cart, creating an empty one on first access
func (s *Service) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to check user existence", err)
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	cart, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load cart", err)
		return nil, err
	}
	return cart, nil
}

// AddItem puts a product into the user's cart. Adding a product already in
// the cart increases its quantity.
func (s *Service) AddItem(ctx context.Context, userID int64, req *AddRequest) (*domain.Cart, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrInvalidInput
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Stock < req.Quantity {
		return nil, domain.ErrConflict
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, cart.ID, req.ProductID, req.Quantity); err != nil {
		s.logger.Error("Failed to add cart item", err)
		return nil, err
	}

	return s.repo.GetByUserID(ctx, userID)
}

// UpdateItemQuantity sets the quantity of a cart line
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidInput
	}

	if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		s.logger.Error("Failed to update cart item", err)
		return nil, err
	}

	return s.repo.GetByUserID(ctx, userID)
}

// RemoveItem deletes a cart line
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) (*domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, itemID); err != nil {
		s.logger.Error("Failed to remove cart item", err)
		return nil, err
	}

	return s.repo.GetByUserID(ctx, userID)
}

// Clear empties the user's cart
func (s *Service) Clear(ctx context.Context, userID int64) error {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		s.logger.Error("Failed to clear cart", err)
		return err
	}
	return nil
}
