package product

import (
	"context"
	"time"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	appvalidator "github.com/techmarket-labs/techmarket-api/internal/pkg/validator"
	"github.com/go-playground/validator/v10"
)

// Page is one page of products with pagination metadata.
type Page struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// Service handles product catalog operations
type Service struct {
	repo       domain.ProductRepository
	categories domain.CategoryRepository
	validate   *validator.Validate
	logger     *logger.Logger
}

// NewService creates a new product service
func NewService(repo domain.ProductRepository, categories domain.CategoryRepository, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		validate:   appvalidator.Get(),
		logger:     log,
	}
}

// Create validates and stores a new product
func (s *Service) Create(ctx context.Context, product *domain.Product) error {
	if err := s.validate.Struct(product); err != nil {
		return domain.ErrInvalidInput
	}

	exists, err := s.categories.Exists(ctx, product.CategoryID)
	if err != nil {
		s.logger.Error("Failed to check category existence", err)
		return err
	}
	if !exists {
		return domain.ErrInvalidInput
	}

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", err)
		return err
	}
	return nil
}

// GetByID returns one product
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of products, optionally filtered by category
// (categoryID 0 means no filter).
func (s *Service) List(ctx context.Context, categoryID int64, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	total, err := s.repo.Count(ctx, categoryID)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, err
	}

	products, err := s.repo.List(ctx, categoryID, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, err
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}

	return &Page{Products: products, Total: total, Page: page, Pages: pages}, nil
}

// Update applies changes to an existing product
func (s *Service) Update(ctx context.Context, product *domain.Product) error {
	if err := s.validate.Struct(product); err != nil {
		return domain.ErrInvalidInput
	}

	product.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, product); err != nil {
		s.logger.Error("Failed to update product", err)
		return err
	}
	return nil
}

// Delete removes a product. Reviews and rating stats for it are left in
// place; readers tolerate the orphaned documents.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete product", err)
		return err
	}
	return nil
}
