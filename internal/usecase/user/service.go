package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	appvalidator "github.com/techmarket-labs/techmarket-api/internal/pkg/validator"
)

// Registration is the inbound payload for creating a user account.
type Registration struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
}

// Page is one page of users with pagination metadata.
type Page struct {
	Users []*domain.User `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
}

// Service handles user account operations
type Service struct {
	repo     domain.UserRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new user service
func NewService(repo domain.UserRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: appvalidator.Get(),
		logger:   log,
	}
}

// Register hashes the password and stores a new user
func (s *Service) Register(ctx context.Context, reg *Registration) (*domain.User, error) {
	if err := s.validate.Struct(reg); err != nil {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", err)
		return nil, domain.ErrInternal
	}

	now := time.Now()
	user := &domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", err)
		return nil, err
	}
	return user, nil
}

// GetByID returns one user
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of users
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count users", err)
		return nil, err
	}

	users, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("Failed to list users", err)
		return nil, err
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}

	return &Page{Users: users, Total: total, Page: page, Pages: pages}, nil
}

// Update applies profile changes to an existing user
func (s *Service) Update(ctx context.Context, user *domain.User) error {
	if err := s.validate.Struct(user); err != nil {
		return domain.ErrInvalidInput
	}

	user.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", err)
		return err
	}
	return nil
}

// Delete removes a user account
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete user", err)
		return err
	}
	return nil
}
