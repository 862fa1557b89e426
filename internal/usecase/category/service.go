package category

import (
	"context"
	"time"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	appvalidator "github.com/techmarket-labs/techmarket-api/internal/pkg/validator"
	"github.com/go-playground/validator/v10"
)

// Service handles category operations
type Service struct {
	repo     domain.CategoryRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new category service
func NewService(repo domain.CategoryRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: appvalidator.Get(),
		logger:   log,
	}
}

// Create validates and stores a new category
func (s *Service) Create(ctx context.Context, category *domain.Category) error {
	if err := s.validate.Struct(category); err != nil {
		return domain.ErrInvalidInput
	}

	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	if err := s.repo.Create(ctx, category); err != nil {
		s.logger.Error("Failed to create category", err)
		return err
	}
	return nil
}

// GetByID returns one category
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all categories
func (s *Service) List(ctx context.Context) ([]*domain.Category, error) {
	return s.repo.List(ctx)
}

// Update applies changes to an existing category
func (s *Service) Update(ctx context.Context, category *domain.Category) error {
	if err := s.validate.Struct(category); err != nil {
		return domain.ErrInvalidInput
	}

	category.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, category); err != nil {
		s.logger.Error("Failed to update category", err)
		return err
	}
	return nil
}

// Delete removes a category. Categories still referenced by products
// cannot be removed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete category", err)
		return err
	}
	return nil
}
